package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/roundtable/capability"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
)

// Options configures an Agent instance.
type Options struct {
	// MaxToolIterations bounds the tool-resolution loop within one turn to
	// guard against runaway tool-call chains.
	MaxToolIterations int
	// RetryAttempts is the total number of reasoning-engine attempts per
	// call before the turn fails.
	RetryAttempts uint
	// RetryInitialInterval seeds the exponential backoff between attempts.
	RetryInitialInterval time.Duration
	// Logger receives turn and tool events.
	Logger logging.Logger
}

// binding joins a tool descriptor with the client that advertises it.
type binding struct {
	client capability.Client
	desc   capability.ToolDescriptor
}

// Agent binds one reasoning model to a role identity and a set of capability
// clients. It acts once per assigned turn and owns its client connections for
// the session lifetime.
type Agent struct {
	desc    core.AgentDescriptor
	model   model.Model
	clients []capability.Client
	opts    Options

	mu      sync.Mutex
	started bool
	catalog map[string]binding
	order   []string // catalog iteration order, first-seen
}

// New creates an agent for the given descriptor, model and capability clients.
func New(desc core.AgentDescriptor, m model.Model, clients []capability.Client, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxToolIterations:    8,
		RetryAttempts:        3,
		RetryInitialInterval: 500 * time.Millisecond,
		Logger:               logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxToolIterations < 1 {
		opts.MaxToolIterations = 1
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	return &Agent{
		desc:    desc,
		model:   m,
		clients: clients,
		opts:    opts,
		catalog: make(map[string]binding),
	}
}

// ID returns the agent's identity.
func (a *Agent) ID() core.AgentID { return a.desc.ID }

// Descriptor returns the agent's static configuration.
func (a *Agent) Descriptor() core.AgentDescriptor { return a.desc }

// Start opens all capability clients and registers their tool catalogs.
// When the descriptor lists explicit capabilities, the catalog is restricted
// to those tool names.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	for _, client := range a.clients {
		if err := client.Start(ctx); err != nil {
			return fmt.Errorf("agent %s: start capability client: %w", a.desc.ID, err)
		}
		descriptors, err := client.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("agent %s: list tools: %w", a.desc.ID, err)
		}
		for _, desc := range descriptors {
			if len(a.desc.Capabilities) > 0 && !slices.Contains(a.desc.Capabilities, desc.Name) {
				continue
			}
			if _, exists := a.catalog[desc.Name]; exists {
				a.opts.Logger.Warn("duplicate tool ignored", "agent", a.desc.ID, "tool", desc.Name)
				continue
			}
			a.catalog[desc.Name] = binding{client: client, desc: desc}
			a.order = append(a.order, desc.Name)
		}
	}

	a.started = true
	a.opts.Logger.Debug("agent started", "agent", a.desc.ID, "tools", len(a.order))
	return nil
}

// Close releases all capability client connections. Safe to call repeatedly.
func (a *Agent) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, client := range a.clients {
		if err := client.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.started = false
	return errors.Join(errs...)
}

// TakeTurn produces this agent's next message given the shared history. The
// returned message carries every tool invocation performed during the turn,
// in request order. An error return is fatal to the session.
func (a *Agent) TakeTurn(ctx context.Context, history []core.Message) (core.Message, error) {
	messages := a.renderHistory(history)

	var invocations []core.ToolInvocation
	var notes []string

	for iteration := 0; ; iteration++ {
		resp, err := a.generate(ctx, messages)
		if err != nil {
			return core.Message{}, err
		}

		if len(resp.ToolCalls) == 0 {
			return a.finishTurn(resp.Content, invocations, notes), nil
		}
		if iteration >= a.opts.MaxToolIterations {
			notes = append(notes, fmt.Sprintf("tool call budget of %d iterations exhausted", a.opts.MaxToolIterations))
			return a.finishTurn(resp.Content, invocations, notes), nil
		}

		calls, parseErr := parseCalls(resp.ToolCalls)
		if parseErr != nil {
			// Malformed tool-call request: note it, skip further resolution
			// and let the turn complete so the session keeps moving.
			invocations = append(invocations, core.ToolInvocation{
				Tool:        parseErr.tool,
				ErrorKind:   core.ErrorKindMalformedResponse,
				ErrorDetail: parseErr.detail,
			})
			notes = append(notes, fmt.Sprintf("tool call %q could not be interpreted: %s", parseErr.tool, parseErr.detail))
			return a.finishTurn(resp.Content, invocations, notes), nil
		}

		messages = append(messages, model.ChatMessage{
			Role:      model.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results, turnInvocations := a.resolveCalls(ctx, calls)
		if err := ctx.Err(); err != nil {
			return core.Message{}, fmt.Errorf("%w: %v", core.ErrCancelled, err)
		}
		invocations = append(invocations, turnInvocations...)
		for _, inv := range turnInvocations {
			if inv.Failed() {
				notes = append(notes, fmt.Sprintf("tool %s failed (%s): %s", inv.Tool, inv.ErrorKind, inv.ErrorDetail))
			}
		}

		messages = append(messages, model.ChatMessage{
			Role:        model.RoleTool,
			ToolResults: results,
		})
	}
}

// finishTurn assembles the final message, appending explicit notes for any
// failures encountered along the way.
func (a *Agent) finishTurn(content string, invocations []core.ToolInvocation, notes []string) core.Message {
	for _, note := range notes {
		content += "\n[note: " + note + "]"
	}
	msg := core.NewMessage(a.desc.ID, content)
	msg.ToolCalls = invocations
	return msg
}

// generate calls the reasoning engine with exponential backoff. Exhausting
// the retry budget fails the turn fatally.
func (a *Agent) generate(ctx context.Context, messages []model.ChatMessage) (*model.Response, error) {
	req := model.Request{
		Instructions: a.desc.RoleInstructions,
		Messages:     messages,
		Tools:        a.toolDefinitions(),
		Capabilities: a.model.Info().Capabilities,
	}

	operation := func() (*model.Response, error) {
		resp, err := a.model.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			a.opts.Logger.Warn("reasoning engine call failed", "agent", a.desc.ID, "error", err)
			return nil, err
		}
		return resp, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = a.opts.RetryInitialInterval

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(a.opts.RetryAttempts),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrCancelled, err)
		}
		return nil, fmt.Errorf("%w: agent %s exhausted %d attempts: %v",
			core.ErrEngineUnavailable, a.desc.ID, a.opts.RetryAttempts, err)
	}
	return resp, nil
}

// parsedCall is a tool call with decoded arguments.
type parsedCall struct {
	id   string
	name string
	args map[string]any
}

type parseError struct {
	tool   string
	detail string
}

// parseCalls decodes tool-call arguments. Any undecodable payload classifies
// the whole response as malformed.
func parseCalls(calls []model.ToolCall) ([]parsedCall, *parseError) {
	out := make([]parsedCall, len(calls))
	for i, call := range calls {
		args := map[string]any{}
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return nil, &parseError{tool: call.Name, detail: err.Error()}
			}
		}
		out[i] = parsedCall{id: call.ID, name: call.Name, args: args}
	}
	return out, nil
}

// resolveCalls executes the requested tool calls. Independent calls are
// dispatched concurrently, but results are reassembled in request order
// before being handed back to the model. Failures never abort the turn.
func (a *Agent) resolveCalls(ctx context.Context, calls []parsedCall) ([]model.ToolResult, []core.ToolInvocation) {
	results := make([]model.ToolResult, len(calls))
	invocations := make([]core.ToolInvocation, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			invocations[i], results[i] = a.invokeOne(gctx, call)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the results

	return results, invocations
}

// invokeOne resolves a single call against the catalog and records its outcome.
func (a *Agent) invokeOne(ctx context.Context, call parsedCall) (core.ToolInvocation, model.ToolResult) {
	inv := core.ToolInvocation{Tool: call.name, Arguments: call.args}
	result := model.ToolResult{ID: call.id, Name: call.name}

	b, ok := a.lookup(call.name)
	if !ok {
		inv.ErrorKind = core.ErrorKindUnknownTool
		inv.ErrorDetail = fmt.Sprintf("no capability client advertises %q", call.name)
		result.Content = inv.ErrorDetail
		result.IsError = true
		return inv, result
	}

	start := time.Now()
	value, err := a.invokeValidated(ctx, b, call)
	a.opts.Logger.Info("tool executed",
		"agent", a.desc.ID,
		"tool", call.name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		cerr := capability.Classify(err, call.name)
		inv.ErrorKind = cerr.Kind
		inv.ErrorDetail = cerr.Detail
		result.Content = fmt.Sprintf("ERROR [%s]: %s", cerr.Kind, cerr.Detail)
		result.IsError = true
		return inv, result
	}

	inv.Result = value
	result.Content = renderResult(value)
	return inv, result
}

func (a *Agent) invokeValidated(ctx context.Context, b binding, call parsedCall) (any, error) {
	if err := capability.ValidateArguments(b.desc, call.args); err != nil {
		return nil, err
	}
	return b.client.Invoke(ctx, call.name, call.args)
}

func (a *Agent) lookup(name string) (binding, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.catalog[name]
	return b, ok
}

// toolDefinitions exposes the catalog to the model in registration order.
func (a *Agent) toolDefinitions() []model.ToolDefinition {
	a.mu.Lock()
	defer a.mu.Unlock()

	defs := make([]model.ToolDefinition, 0, len(a.order))
	for _, name := range a.order {
		b := a.catalog[name]
		defs = append(defs, model.ToolDefinition{
			Name:        b.desc.Name,
			Description: b.desc.Description,
			Parameters:  b.desc.InputSchema,
		})
	}
	return defs
}

// renderHistory converts the shared transcript into the model's view: this
// agent's own prior messages become assistant entries, everyone else's
// become labeled user entries.
func (a *Agent) renderHistory(history []core.Message) []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		if msg.Sender == a.desc.ID {
			out = append(out, model.ChatMessage{Role: model.RoleAssistant, Content: msg.Content})
			continue
		}
		out = append(out, model.ChatMessage{
			Role:    model.RoleUser,
			Content: fmt.Sprintf("%s: %s", msg.Sender, msg.Content),
		})
	}
	// Providers reject empty conversations; the opening turn gets a neutral
	// kickoff when no task message was configured.
	if len(out) == 0 {
		out = append(out, model.ChatMessage{
			Role:    model.RoleUser,
			Content: "Begin according to your role instructions.",
		})
	}
	return out
}

// renderResult flattens a tool result value into text for the model.
func renderResult(value any) string {
	switch v := value.(type) {
	case nil:
		return "no output"
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
