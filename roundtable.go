// Package roundtable provides a high-level façade over the orchestrator,
// agent and capability packages enabling construction of round-robin
// multi-agent sessions from declarative configuration. Most applications
// interact with this package by:
//  1. Loading a config.Config (or building one in code)
//  2. Creating a RoundTable via New() (optionally overriding the model or logger)
//  3. Calling Run() and mapping the outcome to an exit code
//
// The façade delegates turn scheduling to orchestrator.Session while keeping
// setup ergonomics concise. Capability provider subprocesses are launched
// lazily when the session starts and released when it ends.
package roundtable

import (
	"context"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/roundtable/agent"
	"github.com/hupe1980/roundtable/capability"
	"github.com/hupe1980/roundtable/capability/mcp"
	"github.com/hupe1980/roundtable/config"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/util"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/model/anthropic"
	"github.com/hupe1980/roundtable/model/openai"
	"github.com/hupe1980/roundtable/orchestrator"
	"github.com/hupe1980/roundtable/termination"
	"github.com/hupe1980/roundtable/transcript"
)

// Options configures the RoundTable instance.
type Options struct {
	// Model overrides the reasoning engine built from the configuration.
	// Useful for tests and for providers not covered by the config surface.
	Model model.Model

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// RoundTable is the high-level façade aggregating the session roster and the
// underlying orchestrator.
type RoundTable struct {
	cfg     *config.Config
	opts    Options
	session *orchestrator.Session
}

// New assembles a session from configuration: one reasoning engine shared by
// the roster, one capability provider client per agent and referenced launch
// spec, and one agent per roster entry, registered in turn order.
func New(cfg *config.Config, optFns ...func(o *Options)) (*RoundTable, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := opts.Model
	if engine == nil {
		var err error
		engine, err = buildModel(cfg.Model)
		if err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		ids = append(ids, ac.ID)
	}

	roster := make([]orchestrator.Participant, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		// Each agent owns its own provider connections for the session, even
		// when two agents reference the same launch spec.
		clients := buildClients(cfg, ac)

		instructions, err := util.RenderTemplate(ac.Instructions, map[string]any{
			"AgentID": ac.ID,
			"Peers":   peersOf(ids, ac.ID),
			"Task":    cfg.Task,
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.ID, err)
		}

		roster = append(roster, agent.New(core.AgentDescriptor{
			ID:               core.AgentID(ac.ID),
			RoleInstructions: instructions,
			Capabilities:     ac.Capabilities,
		}, engine, clients, func(o *agent.Options) {
			o.MaxToolIterations = cfg.AgentDefaults.MaxToolIterations
			o.RetryAttempts = cfg.AgentDefaults.RetryAttempts
			o.RetryInitialInterval = time.Duration(cfg.AgentDefaults.RetryInitialMillis) * time.Millisecond
			o.Logger = opts.Logger
		}))
	}

	var condition termination.Condition = termination.Never{}
	if cfg.Termination.TextMention != "" {
		condition = termination.NewTextMention(cfg.Termination.TextMention)
	}

	session, err := orchestrator.NewSession(roster, condition, cfg.MaxTurns, func(o *orchestrator.Options) {
		o.Task = cfg.Task
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &RoundTable{cfg: cfg, opts: opts, session: session}, nil
}

// Transcript exposes the session transcript for subscription before Run.
func (rt *RoundTable) Transcript() *transcript.Transcript { return rt.session.Transcript() }

// Run executes the session to completion and returns its outcome.
func (rt *RoundTable) Run(ctx context.Context) (core.SessionOutcome, error) {
	return rt.session.Run(ctx)
}

func buildClients(cfg *config.Config, ac config.AgentConfig) []capability.Client {
	clients := make([]capability.Client, 0, len(ac.Providers))
	for _, ref := range ac.Providers {
		p := cfg.Providers[ref]
		clients = append(clients, mcp.NewClient(ref, capability.LaunchSpec{
			Command: p.Command,
			Args:    p.Args,
			Env:     p.Env,
			Dir:     p.Dir,
		}, func(o *mcp.Options) {
			o.InvokeTimeout = time.Duration(p.InvokeTimeoutSeconds) * time.Second
		}))
	}
	return clients
}

func peersOf(ids []string, self string) []string {
	peers := make([]string, 0, len(ids)-1)
	for _, id := range ids {
		if id != self {
			peers = append(peers, id)
		}
	}
	return peers
}

func buildModel(mc config.ModelConfig) (model.Model, error) {
	caps := model.Capabilities{
		Vision:               mc.Capabilities.Vision,
		FunctionCalling:      mc.Capabilities.FunctionCalling,
		StructuredJSONOutput: mc.Capabilities.StructuredJSONOutput,
	}

	switch mc.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			if mc.Temperature != nil {
				o.Temperature = *mc.Temperature
			}
			o.MaxCompletionTokens = mc.MaxTokens
			o.BaseURL = mc.BaseURL
			o.APIKey = mc.APIKey
			o.Capabilities = caps
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if mc.Name != "" {
				o.Model = anthropicsdk.Model(mc.Name)
			}
			if mc.Temperature != nil {
				o.Temperature = *mc.Temperature
			}
			o.MaxTokens = mc.MaxTokens
			o.APIKey = mc.APIKey
			o.Capabilities = caps
		}), nil
	case "mock":
		return model.NewMockModel(mc.Name), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", mc.Provider)
	}
}
