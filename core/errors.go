package core

import "errors"

// ErrorKind categorizes failures across the capability and reasoning-engine
// boundaries. Tool-level kinds are recorded on the ToolInvocation and never
// abort the session; only ErrorKindEngineUnavailable (after retries) and
// ErrorKindCancelled are fatal.
type ErrorKind string

const (
	// ErrorKindConnectionLost means the provider connection dropped mid-call.
	ErrorKindConnectionLost ErrorKind = "connection_lost"
	// ErrorKindInvalidArguments means the call arguments failed schema validation.
	ErrorKindInvalidArguments ErrorKind = "invalid_arguments"
	// ErrorKindTimeout means the call exceeded its deadline.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindProviderInternal means the provider reported an internal error.
	ErrorKindProviderInternal ErrorKind = "provider_internal_error"
	// ErrorKindUnknownTool means no owned capability client advertises the tool.
	ErrorKindUnknownTool ErrorKind = "unknown_tool"
	// ErrorKindEngineUnavailable means the reasoning engine could not be
	// reached, after retries.
	ErrorKindEngineUnavailable ErrorKind = "reasoning_engine_unavailable"
	// ErrorKindCancelled means the session was cancelled externally.
	ErrorKindCancelled ErrorKind = "cancelled"
	// ErrorKindMalformedResponse means the engine returned output the agent
	// could not interpret.
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
)

// ErrEngineUnavailable marks a turn failure caused by the reasoning engine
// after the retry budget was exhausted. The orchestrator treats it as fatal.
var ErrEngineUnavailable = errors.New("reasoning engine unavailable")

// ErrCancelled marks a session ended by external cancellation.
var ErrCancelled = errors.New("session cancelled")
