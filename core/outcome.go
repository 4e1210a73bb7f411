package core

// SessionState is the orchestrator's state machine. Transitions happen only
// inside the turn loop; exactly one terminal state is ever reached.
type SessionState int

const (
	// StateInit is the state before Run is called.
	StateInit SessionState = iota
	// StateRunning is the state while turns are executing.
	StateRunning
	// StateTerminatedByCondition means a message matched the termination condition.
	StateTerminatedByCondition
	// StateTerminatedByLimit means the turn budget was exhausted without a match.
	StateTerminatedByLimit
	// StateFailed means a fatal turn failure or cancellation ended the session.
	StateFailed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateTerminatedByCondition:
		return "TERMINATED_BY_CONDITION"
	case StateTerminatedByLimit:
		return "TERMINATED_BY_LIMIT"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state ends the session.
func (s SessionState) Terminal() bool {
	return s == StateTerminatedByCondition || s == StateTerminatedByLimit || s == StateFailed
}

// SessionOutcome is the final result of a session run. State is the single
// authoritative signal of how the session ended.
type SessionOutcome struct {
	State         SessionState `json:"state"`
	TurnsExecuted int          `json:"turns_executed"`
	LastMessage   *Message     `json:"last_message,omitempty"`
}

// ExitCode maps the outcome onto process exit semantics for CLI embeddings:
// 0 when the termination condition matched, 2 when the turn limit was hit,
// 1 for failure.
func (o SessionOutcome) ExitCode() int {
	switch o.State {
	case StateTerminatedByCondition:
		return 0
	case StateTerminatedByLimit:
		return 2
	default:
		return 1
	}
}
