package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructSchema(t *testing.T) {
	type searchArgs struct {
		Query   string  `json:"query" description:"JQL search expression"`
		Limit   int     `json:"limit,omitempty"`
		Exact   bool    `json:"exact"`
		Project *string `json:"project,omitempty"`
	}

	schema := StructSchema(searchArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "string", "description": "JQL search expression"}, props["query"])
	assert.Equal(t, map[string]any{"type": "integer"}, props["limit"])
	assert.Equal(t, map[string]any{"type": "boolean"}, props["exact"])

	assert.ElementsMatch(t, []string{"query", "exact"}, schema["required"])
}

func TestStructSchemaNonStruct(t *testing.T) {
	schema := StructSchema("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate(
		"You are {{.AgentID}}. Your peers: {{join \", \" .Peers}}.",
		map[string]any{"AgentID": "bug_analyst", "Peers": []string{"automation_expert", "reviewer"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "You are bug_analyst. Your peers: automation_expert, reviewer.", out)
}

func TestRenderTemplatePassthrough(t *testing.T) {
	out, err := RenderTemplate("plain instructions", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain instructions", out)
}

func TestRenderTemplateBadSyntax(t *testing.T) {
	_, err := RenderTemplate("{{.Unclosed", nil)
	require.Error(t, err)
}
