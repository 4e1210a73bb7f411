package capability

import (
	"context"
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// HandlerFunc executes one in-process tool call.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// StaticClient is an in-process Client backed by registered handler
// functions. It needs no external process and is useful for tests, examples
// and lightweight built-in tools.
type StaticClient struct {
	mu       sync.RWMutex
	tools    []ToolDescriptor
	handlers map[string]HandlerFunc
	started  bool
}

// NewStaticClient constructs an empty static client.
func NewStaticClient() *StaticClient {
	return &StaticClient{handlers: make(map[string]HandlerFunc)}
}

// Register adds a tool descriptor with its handler.
func (c *StaticClient) Register(desc ToolDescriptor, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = append(c.tools, desc)
	c.handlers[desc.Name] = handler
}

// Start implements Client.
func (c *StaticClient) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

// ListTools implements Client.
func (c *StaticClient) ListTools(context.Context) ([]ToolDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolDescriptor, len(c.tools))
	copy(out, c.tools)
	return out, nil
}

// Invoke implements Client.
func (c *StaticClient) Invoke(ctx context.Context, tool string, args map[string]any) (any, error) {
	c.mu.RLock()
	handler, ok := c.handlers[tool]
	c.mu.RUnlock()
	if !ok {
		return nil, NewError(core.ErrorKindUnknownTool, tool, "tool not registered")
	}

	result, err := handler(ctx, args)
	if err != nil {
		return nil, Classify(err, tool)
	}
	return result, nil
}

// Close implements Client.
func (c *StaticClient) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	return nil
}
