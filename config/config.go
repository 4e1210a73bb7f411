// Package config loads the session configuration surface: the model
// provider, capability provider launch specs, the agent roster, the
// termination sentinel and the session limits. The loaded Config is passed
// into session construction, with no implicit global lookups beyond ${VAR}
// expansion at read time.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the session configuration file.
type Config struct {
	Model         ModelConfig               `yaml:"model"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
	Agents        []AgentConfig             `yaml:"agents"`
	Termination   TerminationConfig         `yaml:"termination"`
	MaxTurns      int                       `yaml:"max_turns"`
	Task          string                    `yaml:"task"`
	AgentDefaults AgentDefaults             `yaml:"agent_defaults"`
}

// ModelConfig selects and tunes the reasoning engine shared by all agents.
// Temperature is a pointer so an explicit 0 is distinguishable from unset;
// when nil, the provider adapter's default applies.
type ModelConfig struct {
	Provider     string             `yaml:"provider"` // openai | anthropic | mock
	Name         string             `yaml:"name"`
	Temperature  *float64           `yaml:"temperature"`
	MaxTokens    int64              `yaml:"max_tokens"`
	BaseURL      string             `yaml:"base_url"`
	APIKey       string             `yaml:"api_key"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

// CapabilitiesConfig mirrors the recognized engine options.
type CapabilitiesConfig struct {
	Vision               bool `yaml:"vision"`
	FunctionCalling      bool `yaml:"function_calling"`
	StructuredJSONOutput bool `yaml:"structured_json_output"`
}

// ProviderConfig is the launch spec for one capability provider subprocess.
type ProviderConfig struct {
	Command              string   `yaml:"command"`
	Args                 []string `yaml:"args"`
	Env                  []string `yaml:"env"`
	Dir                  string   `yaml:"dir"`
	InvokeTimeoutSeconds int      `yaml:"invoke_timeout_seconds"`
}

// AgentConfig declares one roster entry, in turn order.
type AgentConfig struct {
	ID           string   `yaml:"id"`
	Instructions string   `yaml:"instructions"`
	Providers    []string `yaml:"providers"`
	Capabilities []string `yaml:"capabilities"`
}

// TerminationConfig declares the stop condition.
type TerminationConfig struct {
	TextMention string `yaml:"text_mention"`
}

// AgentDefaults tunes the turn-cycle guardrails for all agents.
type AgentDefaults struct {
	MaxToolIterations  int  `yaml:"max_tool_iterations"`
	RetryAttempts      uint `yaml:"retry_attempts"`
	RetryInitialMillis int  `yaml:"retry_initial_millis"`
}

// Load reads, env-expands, parses and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes configuration bytes. ${VAR} references are expanded from the
// process environment before decoding.
func Parse(raw []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 4096
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 20
	}
	if c.AgentDefaults.MaxToolIterations == 0 {
		c.AgentDefaults.MaxToolIterations = 8
	}
	if c.AgentDefaults.RetryAttempts == 0 {
		c.AgentDefaults.RetryAttempts = 3
	}
	if c.AgentDefaults.RetryInitialMillis == 0 {
		c.AgentDefaults.RetryInitialMillis = 500
	}
	for name, p := range c.Providers {
		if p.InvokeTimeoutSeconds == 0 {
			p.InvokeTimeoutSeconds = 60
			c.Providers[name] = p
		}
	}
}

// Validate checks structural invariants before session construction.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be >= 1, got %d", c.MaxTurns)
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent id must not be empty")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true

		for _, ref := range a.Providers {
			if _, ok := c.Providers[ref]; !ok {
				return fmt.Errorf("agent %q references unknown provider %q", a.ID, ref)
			}
		}
	}

	for name, p := range c.Providers {
		if p.Command == "" {
			return fmt.Errorf("provider %q has no command", name)
		}
	}

	return nil
}
