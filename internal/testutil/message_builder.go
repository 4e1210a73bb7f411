package testutil

import (
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/transcript"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := testutil.NewMessageBuilder().Sender("analyst").Text("hello").Turn(0).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	sender    core.AgentID
	content   string
	turnIndex int
	timestamp time.Time
	toolCalls []core.ToolInvocation
}

// NewMessageBuilder creates a builder with default sender "agent" and turn 0.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		sender:    "agent",
		timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Sender sets the message author (chainable).
func (b *MessageBuilder) Sender(id string) *MessageBuilder {
	b.sender = core.AgentID(id)
	return b
}

// Text sets the message content (chainable).
func (b *MessageBuilder) Text(content string) *MessageBuilder {
	b.content = content
	return b
}

// Turn sets the turn index (chainable).
func (b *MessageBuilder) Turn(i int) *MessageBuilder {
	b.turnIndex = i
	return b
}

// At overrides the default fixed timestamp (chainable).
func (b *MessageBuilder) At(ts time.Time) *MessageBuilder {
	b.timestamp = ts
	return b
}

// ToolOK records a successful tool invocation on the message (chainable).
func (b *MessageBuilder) ToolOK(tool string, result any) *MessageBuilder {
	b.toolCalls = append(b.toolCalls, core.ToolInvocation{Tool: tool, Result: result})
	return b
}

// ToolFailed records a failed tool invocation on the message (chainable).
func (b *MessageBuilder) ToolFailed(tool string, kind core.ErrorKind, detail string) *MessageBuilder {
	b.toolCalls = append(b.toolCalls, core.ToolInvocation{Tool: tool, ErrorKind: kind, ErrorDetail: detail})
	return b
}

// Build assembles the message.
func (b *MessageBuilder) Build() core.Message {
	msg := core.NewMessage(b.sender, b.content)
	msg.TurnIndex = b.turnIndex
	msg.Timestamp = b.timestamp
	msg.ToolCalls = b.toolCalls
	return msg
}

// PopulateTranscript appends the given messages to a fresh transcript,
// assigning sequential turn indexes. The transcript is left open.
func PopulateTranscript(msgs ...core.Message) *transcript.Transcript {
	t := transcript.New()
	for i, msg := range msgs {
		msg.TurnIndex = i
		if err := t.Append(msg); err != nil {
			panic(err)
		}
	}
	return t
}
