// Package capability defines the boundary to external tool providers: a
// client exposes a fixed catalog of callable tools and executes calls. Each
// client connection is owned by exactly one agent for the session lifetime
// and is released when the session reaches any terminal state.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/roundtable/core"
)

// ToolDescriptor statically declares one callable tool: its name and the
// JSON schema of its input. Descriptors are registered at connection time;
// agents hold an explicit catalog rather than probing capabilities.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// Client is one connection to an external capability provider.
//
// Lifecycle is scoped acquisition: Start opens the connection/process before
// the first turn that needs it, Close is guaranteed to run when the session
// terminates. Each Invoke is independent; no conversation state is assumed
// in the provider across calls.
type Client interface {
	// Start establishes the provider connection.
	Start(ctx context.Context) error

	// ListTools returns the provider's tool catalog.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)

	// Invoke executes a tool call. Failures are reported as *Error values
	// carrying an ErrorKind from the shared taxonomy.
	Invoke(ctx context.Context, tool string, args map[string]any) (any, error)

	// Close releases the connection. Safe to call more than once.
	Close(ctx context.Context) error
}

// Error is a classified capability failure. It is recorded on the
// ToolInvocation and never aborts the turn that produced it.
type Error struct {
	Kind   core.ErrorKind
	Tool   string
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("capability error [%s] in %s: %s", e.Kind, e.Tool, e.Detail)
	}
	return fmt.Sprintf("capability error [%s]: %s", e.Kind, e.Detail)
}

// NewError creates a classified capability error.
func NewError(kind core.ErrorKind, tool, detail string) *Error {
	return &Error{Kind: kind, Tool: tool, Detail: detail}
}

// Classify maps an arbitrary error onto the capability taxonomy. Already
// classified errors pass through; context errors become Timeout/Cancelled;
// anything else is a lost connection.
func Classify(err error, tool string) *Error {
	if err == nil {
		return nil
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(core.ErrorKindTimeout, tool, err.Error())
	case errors.Is(err, context.Canceled):
		return NewError(core.ErrorKindCancelled, tool, err.Error())
	default:
		return NewError(core.ErrorKindConnectionLost, tool, err.Error())
	}
}
