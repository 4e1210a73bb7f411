package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
model:
  provider: openai
  name: gemini-2.5-flash
  base_url: ${ROUNDTABLE_TEST_BASE_URL}
  api_key: ${ROUNDTABLE_TEST_API_KEY}
  capabilities:
    vision: true
    function_calling: true
    structured_json_output: true

providers:
  jira:
    command: docker
    args: ["run", "-i", "--rm", "ghcr.io/sooperset/mcp-atlassian:latest"]
    env:
      - JIRA_URL=${ROUNDTABLE_TEST_JIRA_URL}
  browser:
    command: npx
    args: ["@playwright/mcp@latest"]

agents:
  - id: bug_analyst
    instructions: You analyze bug reports.
    providers: [jira]
  - id: automation_expert
    instructions: You reproduce bugs in the browser.
    providers: [browser]

termination:
  text_mention: "TESTING COMPLETE"

max_turns: 12
task: Investigate PROJ-123.
`

func TestParse(t *testing.T) {
	t.Setenv("ROUNDTABLE_TEST_BASE_URL", "http://localhost:4000")
	t.Setenv("ROUNDTABLE_TEST_API_KEY", "sk-test")
	t.Setenv("ROUNDTABLE_TEST_JIRA_URL", "https://example.atlassian.net")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model.Name)
	assert.Equal(t, "http://localhost:4000", cfg.Model.BaseURL)
	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.True(t, cfg.Model.Capabilities.FunctionCalling)

	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "bug_analyst", cfg.Agents[0].ID)
	assert.Equal(t, []string{"jira"}, cfg.Agents[0].Providers)

	require.Contains(t, cfg.Providers, "jira")
	assert.Equal(t, []string{"JIRA_URL=https://example.atlassian.net"}, cfg.Providers["jira"].Env)

	assert.Equal(t, "TESTING COMPLETE", cfg.Termination.TextMention)
	assert.Equal(t, 12, cfg.MaxTurns)
	assert.Equal(t, "Investigate PROJ-123.", cfg.Task)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
agents:
  - id: solo
    instructions: Work alone.
`))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Nil(t, cfg.Model.Temperature, "unset temperature is left to the provider adapter")
	assert.Equal(t, int64(4096), cfg.Model.MaxTokens)
	assert.Equal(t, 20, cfg.MaxTurns)
	assert.Equal(t, 8, cfg.AgentDefaults.MaxToolIterations)
	assert.Equal(t, uint(3), cfg.AgentDefaults.RetryAttempts)
	assert.Equal(t, 500, cfg.AgentDefaults.RetryInitialMillis)
}

func TestParseZeroTemperatureIsPreserved(t *testing.T) {
	cfg, err := Parse([]byte(`
model:
  temperature: 0
agents:
  - id: solo
    instructions: Work alone.
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Model.Temperature)
	assert.Equal(t, 0.0, *cfg.Model.Temperature)
}

func TestParseProviderTimeoutDefault(t *testing.T) {
	cfg, err := Parse([]byte(`
providers:
  jira:
    command: docker
agents:
  - id: a
    instructions: x
    providers: [jira]
`))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Providers["jira"].InvokeTimeoutSeconds)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no agents",
			yaml: `max_turns: 5`,
			want: "at least one agent",
		},
		{
			name: "duplicate agent id",
			yaml: `
agents:
  - id: twin
    instructions: a
  - id: twin
    instructions: b
`,
			want: `duplicate agent id "twin"`,
		},
		{
			name: "unknown provider reference",
			yaml: `
agents:
  - id: a
    instructions: x
    providers: [ghost]
`,
			want: `unknown provider "ghost"`,
		},
		{
			name: "unknown model provider",
			yaml: `
model:
  provider: acme
agents:
  - id: a
    instructions: x
`,
			want: `unknown model provider "acme"`,
		},
		{
			name: "provider without command",
			yaml: `
providers:
  empty: {}
agents:
  - id: a
    instructions: x
`,
			want: `provider "empty" has no command`,
		},
		{
			name: "negative max turns",
			yaml: `
max_turns: -1
agents:
  - id: a
    instructions: x
`,
			want: "max_turns must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
