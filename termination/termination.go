// Package termination decides when a session is done. Conditions are
// stateless and evaluated per appended message, never over the accumulated
// transcript.
package termination

import (
	"strings"

	"github.com/hupe1980/roundtable/core"
)

// Condition evaluates whether a message satisfies the stop condition.
type Condition interface {
	Matches(msg core.Message) bool
}

// TextMention stops the session when the message content contains the
// configured sentinel as an exact, case-sensitive substring.
type TextMention struct {
	pattern string
}

// NewTextMention constructs a TextMention condition for the given sentinel.
func NewTextMention(pattern string) *TextMention {
	return &TextMention{pattern: pattern}
}

// Pattern returns the configured sentinel.
func (c *TextMention) Pattern() string { return c.pattern }

// Matches implements Condition.
func (c *TextMention) Matches(msg core.Message) bool {
	if c.pattern == "" {
		return false
	}
	return strings.Contains(msg.Content, c.pattern)
}

// Never is a Condition that never matches; sessions run to the turn limit.
type Never struct{}

// Matches implements Condition.
func (Never) Matches(core.Message) bool { return false }
