package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/termination"
	"github.com/hupe1980/roundtable/transcript"
)

// Participant is one roster member. Agents implement it; tests may supply
// fakes. Start is called once before the first turn, Close exactly once when
// the session reaches a terminal state.
type Participant interface {
	ID() core.AgentID
	Start(ctx context.Context) error
	TakeTurn(ctx context.Context, history []core.Message) (core.Message, error)
	Close(ctx context.Context) error
}

// Options configures a Session.
type Options struct {
	// Task is an optional kickoff message seeding every participant's view
	// of the conversation. It is not a transcript turn.
	Task string
	// Logger receives session lifecycle events.
	Logger logging.Logger
}

// Session is a single orchestrated run over a fixed roster. A Session is
// single-use: Run may be called once.
type Session struct {
	roster    []Participant
	condition termination.Condition
	maxTurns  int
	opts      Options

	transcript *transcript.Transcript
	state      core.SessionState
}

// NewSession validates the configuration and assembles a session.
func NewSession(roster []Participant, condition termination.Condition, maxTurns int, optFns ...func(o *Options)) (*Session, error) {
	if len(roster) == 0 {
		return nil, errors.New("roster must not be empty")
	}
	if maxTurns < 1 {
		return nil, fmt.Errorf("maxTurns must be >= 1, got %d", maxTurns)
	}
	if condition == nil {
		condition = termination.Never{}
	}

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Session{
		roster:     roster,
		condition:  condition,
		maxTurns:   maxTurns,
		opts:       opts,
		transcript: transcript.New(),
		state:      core.StateInit,
	}, nil
}

// Transcript exposes the session log for observers. Subscribe before calling
// Run to see every message live.
func (s *Session) Transcript() *transcript.Transcript { return s.transcript }

// State returns the current session state.
func (s *Session) State() core.SessionState { return s.state }

// Run executes the turn loop until the termination condition matches, the
// turn budget is exhausted, a turn fails fatally, or the context is
// cancelled. All participant resources are released before Run returns,
// whatever the terminal state. The returned error is non-nil only when the
// outcome state is FAILED.
func (s *Session) Run(ctx context.Context) (core.SessionOutcome, error) {
	if s.state != core.StateInit {
		return s.outcome(), fmt.Errorf("session already ran (state %s)", s.state)
	}
	s.state = core.StateRunning

	defer s.release(ctx)
	defer s.transcript.Close()

	for _, p := range s.roster {
		if err := p.Start(ctx); err != nil {
			s.state = core.StateFailed
			return s.outcome(), fmt.Errorf("start participant %s: %w", p.ID(), err)
		}
	}

	task := s.taskMessages()

	for turn := 0; turn < s.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			s.state = core.StateFailed
			return s.outcome(), fmt.Errorf("%w: %v", core.ErrCancelled, err)
		}

		actor := s.roster[turn%len(s.roster)]
		s.opts.Logger.Debug("turn starting", "turn", turn, "agent", actor.ID())

		history := append(task, s.transcript.History()...)
		msg, err := actor.TakeTurn(ctx, history)
		if err != nil {
			s.state = core.StateFailed
			if ctx.Err() != nil && !errors.Is(err, core.ErrCancelled) {
				err = fmt.Errorf("%w: %v", core.ErrCancelled, err)
			}
			s.opts.Logger.Error("turn failed", "turn", turn, "agent", actor.ID(), "error", err)
			return s.outcome(), fmt.Errorf("turn %d (%s): %w", turn, actor.ID(), err)
		}

		msg.TurnIndex = turn
		if err := s.transcript.Append(msg); err != nil {
			s.state = core.StateFailed
			return s.outcome(), fmt.Errorf("append turn %d: %w", turn, err)
		}
		s.opts.Logger.Info("turn completed",
			"turn", turn,
			"agent", actor.ID(),
			"tool_calls", len(msg.ToolCalls),
		)

		if s.condition.Matches(msg) {
			s.state = core.StateTerminatedByCondition
			s.opts.Logger.Info("termination condition matched", "turn", turn)
			return s.outcome(), nil
		}
	}

	s.state = core.StateTerminatedByLimit
	s.opts.Logger.Info("turn limit reached", "max_turns", s.maxTurns)
	return s.outcome(), nil
}

// taskMessages renders the optional kickoff task as a synthetic user message
// prepended to every participant's history view.
func (s *Session) taskMessages() []core.Message {
	if s.opts.Task == "" {
		return nil
	}
	task := core.NewMessage("user", s.opts.Task)
	task.TurnIndex = -1
	return []core.Message{task}
}

// release closes every participant, detached from the (possibly cancelled)
// run context so teardown always gets a chance to finish.
func (s *Session) release(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range s.roster {
		if err := p.Close(ctx); err != nil {
			s.opts.Logger.Warn("participant close failed", "agent", p.ID(), "error", err)
		}
	}
}

func (s *Session) outcome() core.SessionOutcome {
	return core.SessionOutcome{
		State:         s.state,
		TurnsExecuted: s.transcript.Len(),
		LastMessage:   s.transcript.Last(),
	}
}
