package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/capability"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/model"
)

func fastRetries(o *Options) {
	o.RetryAttempts = 3
	o.RetryInitialInterval = time.Millisecond
}

func newToolClient(t *testing.T, name string, handler capability.HandlerFunc) *capability.StaticClient {
	t.Helper()
	client := capability.NewStaticClient()
	client.Register(capability.ToolDescriptor{
		Name: name,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
		},
	}, handler)
	return client
}

func toolCall(t *testing.T, name string, args map[string]any) model.ToolCall {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return model.ToolCall{ID: "call-" + name, Name: name, Arguments: raw}
}

func TestAgent_TakeTurn_PlainReply(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueText("hello from analyst")

	a := New(core.AgentDescriptor{ID: "analyst", RoleInstructions: "analyze bugs"}, mock, nil, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.AgentID("analyst"), msg.Sender)
	assert.Equal(t, "hello from analyst", msg.Content)
	assert.Empty(t, msg.ToolCalls)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "analyze bugs", reqs[0].Instructions)
}

func TestAgent_TakeTurn_ToolLoop(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{toolCall(t, "jira_search", map[string]any{"query": "recent bugs"})},
		FinishReason: "tool_calls",
	})
	mock.EnqueueText("found 3 bugs")

	client := newToolClient(t, "jira_search", func(_ context.Context, args map[string]any) (any, error) {
		return "BUG-1, BUG-2, BUG-3", nil
	})

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, []capability.Client{client}, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "found 3 bugs", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "jira_search", msg.ToolCalls[0].Tool)
	assert.False(t, msg.ToolCalls[0].Failed())
	assert.Equal(t, "BUG-1, BUG-2, BUG-3", msg.ToolCalls[0].Result)

	// Second model call must carry the tool result back.
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, model.RoleTool, last.Role)
	require.Len(t, last.ToolResults, 1)
	assert.Equal(t, "BUG-1, BUG-2, BUG-3", last.ToolResults[0].Content)
}

func TestAgent_TakeTurn_ConcurrentCallsReassembledInRequestOrder(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueResponse(model.Response{
		ToolCalls: []model.ToolCall{
			toolCall(t, "jira_search", map[string]any{}),
			toolCall(t, "jira_comment", map[string]any{}),
			toolCall(t, "jira_assign", map[string]any{}),
		},
		FinishReason: "tool_calls",
	})
	mock.EnqueueText("all three handled")

	// Handlers finish in reverse request order so reassembly cannot lean on
	// completion timing.
	delays := map[string]time.Duration{
		"jira_search":  60 * time.Millisecond,
		"jira_comment": 30 * time.Millisecond,
		"jira_assign":  0,
	}

	var mu sync.Mutex
	var completed []string

	client := capability.NewStaticClient()
	for name := range delays {
		client.Register(capability.ToolDescriptor{Name: name}, func(_ context.Context, _ map[string]any) (any, error) {
			time.Sleep(delays[name])
			mu.Lock()
			completed = append(completed, name)
			mu.Unlock()
			return name + " done", nil
		})
	}

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, []capability.Client{client}, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"jira_assign", "jira_comment", "jira_search"}, completed,
		"handlers were expected to finish out of request order")

	// The message records invocations in request order regardless.
	require.Len(t, msg.ToolCalls, 3)
	assert.Equal(t, "jira_search", msg.ToolCalls[0].Tool)
	assert.Equal(t, "jira_comment", msg.ToolCalls[1].Tool)
	assert.Equal(t, "jira_assign", msg.ToolCalls[2].Tool)

	// So does the follow-up model call carrying the results back.
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	require.Equal(t, model.RoleTool, last.Role)
	require.Len(t, last.ToolResults, 3)
	assert.Equal(t, "jira_search done", last.ToolResults[0].Content)
	assert.Equal(t, "jira_comment done", last.ToolResults[1].Content)
	assert.Equal(t, "jira_assign done", last.ToolResults[2].Content)
}

func TestAgent_TakeTurn_ToolFailureIsContained(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{toolCall(t, "jira_search", map[string]any{"query": "x"})},
		FinishReason: "tool_calls",
	})
	mock.EnqueueText("could not check jira")

	client := newToolClient(t, "jira_search", func(context.Context, map[string]any) (any, error) {
		return nil, capability.NewError(core.ErrorKindTimeout, "jira_search", "read timed out")
	})

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, []capability.Client{client}, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err, "a failed tool invocation must not fail the turn")
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, core.ErrorKindTimeout, msg.ToolCalls[0].ErrorKind)
	assert.Contains(t, msg.Content, "jira_search failed (timeout)")
}

func TestAgent_TakeTurn_UnknownTool(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{toolCall(t, "browser_click", map[string]any{})},
		FinishReason: "tool_calls",
	})
	mock.EnqueueText("no browser available")

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, nil, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, core.ErrorKindUnknownTool, msg.ToolCalls[0].ErrorKind)
}

func TestAgent_TakeTurn_InvalidArgumentsRejectedBeforeDispatch(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueResponse(model.Response{
		ToolCalls:    []model.ToolCall{toolCall(t, "jira_search", map[string]any{"query": 42})},
		FinishReason: "tool_calls",
	})
	mock.EnqueueText("bad arguments")

	dispatched := false
	client := newToolClient(t, "jira_search", func(context.Context, map[string]any) (any, error) {
		dispatched = true
		return "never", nil
	})

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, []capability.Client{client}, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, core.ErrorKindInvalidArguments, msg.ToolCalls[0].ErrorKind)
	assert.False(t, dispatched, "schema violations must not reach the provider")
}

func TestAgent_TakeTurn_MalformedToolCallCompletesTurn(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueResponse(model.Response{
		Content:      "let me check",
		ToolCalls:    []model.ToolCall{{ID: "c1", Name: "jira_search", Arguments: json.RawMessage("{not json")}},
		FinishReason: "tool_calls",
	})

	client := newToolClient(t, "jira_search", func(context.Context, map[string]any) (any, error) {
		t.Fatal("malformed calls must not be dispatched")
		return nil, nil
	})

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, []capability.Client{client}, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err, "malformed responses are contained in the turn")
	assert.Contains(t, msg.Content, "could not be interpreted")
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, core.ErrorKindMalformedResponse, msg.ToolCalls[0].ErrorKind)
	// Only the first model call happened; no follow-up with tool results.
	assert.Len(t, mock.Requests(), 1)
}

func TestAgent_TakeTurn_IterationCap(t *testing.T) {
	mock := model.NewMockModel("test")
	// The model keeps asking for tools forever.
	for i := 0; i < 4; i++ {
		mock.EnqueueResponse(model.Response{
			ToolCalls:    []model.ToolCall{toolCall(t, "jira_search", map[string]any{"query": "again"})},
			FinishReason: "tool_calls",
		})
	}

	client := newToolClient(t, "jira_search", func(context.Context, map[string]any) (any, error) {
		return "more bugs", nil
	})

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, []capability.Client{client}, func(o *Options) {
		fastRetries(o)
		o.MaxToolIterations = 3
	})
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "budget of 3 iterations exhausted")
	assert.Len(t, msg.ToolCalls, 3)
}

func TestAgent_TakeTurn_RetriesEngineThenSucceeds(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueError(errors.New("rate limited"))
	mock.EnqueueError(errors.New("rate limited"))
	mock.EnqueueText("third time lucky")

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, nil, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	msg, err := a.TakeTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", msg.Content)
	assert.Len(t, mock.Requests(), 3)
}

func TestAgent_TakeTurn_ExhaustedRetriesAreFatal(t *testing.T) {
	mock := model.NewMockModel("test")
	for i := 0; i < 3; i++ {
		mock.EnqueueError(errors.New("rate limited"))
	}

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, nil, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	_, err := a.TakeTurn(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEngineUnavailable)
	assert.Len(t, mock.Requests(), 3)
}

func TestAgent_TakeTurn_Cancellation(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueText("never delivered")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(core.AgentDescriptor{ID: "analyst"}, mock, nil, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	_, err := a.TakeTurn(ctx, nil)
	require.Error(t, err)
}

func TestAgent_RenderHistory_RolesAndLabels(t *testing.T) {
	mock := model.NewMockModel("test")
	mock.EnqueueText("ok")

	a := New(core.AgentDescriptor{ID: "automator"}, mock, nil, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	own := core.NewMessage("automator", "my earlier message")
	other := core.NewMessage("analyst", "their message")

	_, err := a.TakeTurn(context.Background(), []core.Message{other, own})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, model.RoleUser, reqs[0].Messages[0].Role)
	assert.Equal(t, "analyst: their message", reqs[0].Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, reqs[0].Messages[1].Role)
	assert.Equal(t, "my earlier message", reqs[0].Messages[1].Content)
}

func TestAgent_StartRestrictsCatalogToCapabilities(t *testing.T) {
	client := capability.NewStaticClient()
	client.Register(capability.ToolDescriptor{Name: "jira_search"}, func(context.Context, map[string]any) (any, error) { return "", nil })
	client.Register(capability.ToolDescriptor{Name: "jira_delete"}, func(context.Context, map[string]any) (any, error) { return "", nil })

	a := New(core.AgentDescriptor{ID: "analyst", Capabilities: []string{"jira_search"}},
		model.NewMockModel("test"), []capability.Client{client}, fastRetries)
	require.NoError(t, a.Start(context.Background()))

	defs := a.toolDefinitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "jira_search", defs[0].Name)
}
