package model

import (
	"context"
	"fmt"
	"sync"
)

// MockModel is a lightweight in-memory Model useful for tests & examples. It
// replays a scripted sequence of responses (or errors) in order, one per
// Generate call.
type MockModel struct {
	mu      sync.Mutex
	info    Info
	script  []scriptStep
	cursor  int
	history []Request
}

type scriptStep struct {
	resp *Response
	err  error
}

// NewMockModel constructs a MockModel with function calling enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:         name,
			Provider:     "mock",
			Capabilities: Capabilities{FunctionCalling: true},
		},
	}
}

// EnqueueResponse appends a canned reply to the script.
func (m *MockModel) EnqueueResponse(resp Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptStep{resp: &resp})
}

// EnqueueText is shorthand for a plain final text reply.
func (m *MockModel) EnqueueText(content string) {
	m.EnqueueResponse(Response{Content: content, FinishReason: "stop"})
}

// EnqueueError appends a failing step to the script.
func (m *MockModel) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptStep{err: err})
}

// Requests returns all requests seen so far, in call order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.history))
	copy(out, m.history)
	return out
}

// Generate implements Model by replaying the next scripted step.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, req)
	if m.cursor >= len(m.script) {
		return nil, fmt.Errorf("mock model script exhausted after %d calls", m.cursor)
	}
	step := m.script[m.cursor]
	m.cursor++
	if step.err != nil {
		return nil, step.err
	}
	resp := *step.resp
	return &resp, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
