package model

import (
	"context"
	"encoding/json"
)

// Role labels a conversation entry from the model's point of view.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON object of arguments
}

// ToolResult carries the outcome of a resolved tool call back to the model.
type ToolResult struct {
	ID      string `json:"id"`   // Matches the originating ToolCall ID
	Name    string `json:"name"` // Tool name
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ChatMessage is one entry of the conversation handed to the model. Exactly
// one shape applies per role: user/assistant carry Content (assistant
// optionally ToolCalls), tool carries ToolResults.
type ChatMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Capabilities mirrors the recognized reasoning-engine configuration options.
type Capabilities struct {
	Vision               bool `json:"vision"`
	FunctionCalling      bool `json:"function_calling"`
	StructuredJSONOutput bool `json:"structured_json_output"`
}

// Request captures the normalized model input produced by an agent turn:
// role instructions, ordered history, and the tool catalog.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []ChatMessage    `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Capabilities Capabilities     `json:"capabilities"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a complete model reply: final content plus any requested tool
// calls, in the order the model requested them.
type Response struct {
	Content      string      `json:"content"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name         string       `json:"name"`
	Provider     string       `json:"provider"` // "openai", "anthropic", "mock", etc.
	Capabilities Capabilities `json:"capabilities"`
}

// Model is the minimal interface required by agents to drive generation.
// Generate is a discrete awaitable unit: it blocks for one full reply and
// must respect context cancellation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
