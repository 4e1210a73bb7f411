package core

import (
	"time"

	"github.com/google/uuid"
)

// AgentID identifies a session participant. IDs are configured before the
// session starts and are stable for its lifetime.
type AgentID string

// Message is one transcript entry produced by a single turn. Once appended to
// the transcript it must be treated as immutable.
type Message struct {
	ID        string           `json:"id"`
	Sender    AgentID          `json:"sender"`
	Content   string           `json:"content"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
	TurnIndex int              `json:"turn_index"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewMessage constructs a message authored by sender. The turn index is
// assigned by the orchestrator when the message is appended.
func NewMessage(sender AgentID, content string) Message {
	return Message{
		ID:        NewID(),
		Sender:    sender,
		Content:   content,
		TurnIndex: -1,
		Timestamp: time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers can hand out messages without
// exposing shared tool-call slices.
func (m Message) Clone() Message {
	c := m
	if m.ToolCalls != nil {
		c.ToolCalls = make([]ToolInvocation, len(m.ToolCalls))
		copy(c.ToolCalls, m.ToolCalls)
	}
	return c
}

// ToolInvocation records one tool call performed during a turn, in request
// order. A zero ErrorKind means the call succeeded and Result holds the
// provider's response; otherwise ErrorKind/ErrorDetail describe the failure.
type ToolInvocation struct {
	Tool        string         `json:"tool"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Result      any            `json:"result,omitempty"`
	ErrorKind   ErrorKind      `json:"error_kind,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// Failed reports whether the invocation ended in an error.
func (ti ToolInvocation) Failed() bool { return ti.ErrorKind != "" }

// NewID generates a unique identifier for messages.
func NewID() string { return uuid.NewString() }
