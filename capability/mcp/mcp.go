// Package mcp implements a capability.Client over the Model Context Protocol
// using a stdio subprocess transport. The provider process is launched from a
// capability.LaunchSpec, initialized once, and torn down at session end.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/roundtable/capability"
	"github.com/hupe1980/roundtable/core"
)

// Options configure the MCP client.
type Options struct {
	// InvokeTimeout bounds a single tool call. Zero disables the bound.
	InvokeTimeout time.Duration
	// ClientName/ClientVersion identify this client to the server.
	ClientName    string
	ClientVersion string
}

// Client is a stdio MCP connection implementing capability.Client.
type Client struct {
	name string
	spec capability.LaunchSpec
	opts Options

	mu      sync.Mutex
	session *gomcp.ClientSession
}

var _ capability.Client = (*Client)(nil)

// NewClient constructs an MCP client for the given launch spec. The provider
// process is not started until Start is called.
func NewClient(name string, spec capability.LaunchSpec, optFns ...func(o *Options)) *Client {
	opts := Options{
		InvokeTimeout: 60 * time.Second,
		ClientName:    "roundtable",
		ClientVersion: "1.0.0",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{name: name, spec: spec, opts: opts}
}

// Name returns the configured provider name.
func (c *Client) Name() string { return c.name }

// Start launches the provider subprocess and performs the MCP handshake.
// Calling Start on a live connection is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil
	}

	client := gomcp.NewClient(&gomcp.Implementation{
		Name:    c.opts.ClientName,
		Version: c.opts.ClientVersion,
	}, nil)

	cmd := exec.CommandContext(ctx, c.spec.Command, c.spec.Args...)
	cmd.Env = append(os.Environ(), c.spec.Env...)
	cmd.Dir = c.spec.Dir

	session, err := client.Connect(ctx, &gomcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return fmt.Errorf("mcp connect %q: %w", c.name, err)
	}

	c.session = session
	return nil
}

// ListTools implements capability.Client by fetching the provider's catalog.
func (c *Client) ListTools(ctx context.Context) ([]capability.ToolDescriptor, error) {
	session := c.currentSession()
	if session == nil {
		return nil, capability.NewError(core.ErrorKindConnectionLost, "", "mcp session not started")
	}

	var descriptors []capability.ToolDescriptor
	for t, err := range session.Tools(ctx, &gomcp.ListToolsParams{}) {
		if err != nil {
			return nil, classify(err, "")
		}
		descriptors = append(descriptors, capability.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
		})
	}
	return descriptors, nil
}

// Invoke implements capability.Client by issuing one tools/call request.
func (c *Client) Invoke(ctx context.Context, tool string, args map[string]any) (any, error) {
	session := c.currentSession()
	if session == nil {
		return nil, capability.NewError(core.ErrorKindConnectionLost, tool, "mcp session not started")
	}

	// Strip explicit nulls: some models send null for optional parameters,
	// but servers may reject them because null is not a valid value for the
	// declared type. Omitting the key is semantically equivalent.
	for k, v := range args {
		if v == nil {
			delete(args, k)
		}
	}

	if c.opts.InvokeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.InvokeTimeout)
		defer cancel()
	}

	resp, err := session.CallTool(ctx, &gomcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return nil, classify(err, tool)
	}

	text := flattenContent(resp)
	if resp.IsError {
		return nil, capability.NewError(core.ErrorKindProviderInternal, tool, text)
	}
	return text, nil
}

// Close implements capability.Client. It terminates the provider session and
// is safe to call repeatedly.
func (c *Client) Close(context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Close()
}

func (c *Client) currentSession() *gomcp.ClientSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// classify maps transport and protocol failures onto the capability taxonomy.
func classify(err error, tool string) *capability.Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return capability.NewError(core.ErrorKindTimeout, tool, err.Error())
	case errors.Is(err, context.Canceled):
		return capability.NewError(core.ErrorKindCancelled, tool, err.Error())
	case errors.Is(err, io.EOF):
		return capability.NewError(core.ErrorKindConnectionLost, tool, err.Error())
	default:
		return capability.NewError(core.ErrorKindProviderInternal, tool, err.Error())
	}
}

// schemaToMap converts the SDK's schema representation into the plain JSON
// object form used across the model and capability boundaries.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// flattenContent joins all text blocks of a tool result.
func flattenContent(result *gomcp.CallToolResult) string {
	var text string
	for _, content := range result.Content {
		if tc, ok := content.(*gomcp.TextContent); ok {
			text += tc.Text
		}
	}
	if text == "" {
		return "no output"
	}
	return text
}
