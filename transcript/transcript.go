// Package transcript implements the append-only ordered record of session
// messages. It is owned and mutated exclusively by the orchestrator; all
// other parties observe it read-only, either by replaying the sequence or by
// subscribing for live delivery.
package transcript

import (
	"fmt"
	"iter"
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// DefaultSubscriberBuffer is the channel buffer used for live subscribers.
const DefaultSubscriberBuffer = 64

// Transcript is an in-memory append-only message log. It is safe for
// concurrent reads; appends come from a single writer. Stored messages are
// cloned on the way in and on the way out so no caller can mutate history.
type Transcript struct {
	mu          sync.RWMutex
	messages    []core.Message
	subscribers []chan core.Message
	closed      bool

	// dropped counts messages a slow subscriber missed. Delivery is
	// fire-and-forget: appends never block on observers.
	dropped int
}

// New constructs an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// Append adds a message to the log. The message's TurnIndex must equal its
// position; this is the transcript's core invariant and violations are
// programming errors of the caller.
func (t *Transcript) Append(msg core.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transcript closed")
	}
	if msg.TurnIndex != len(t.messages) {
		return fmt.Errorf("turn index %d does not match transcript position %d", msg.TurnIndex, len(t.messages))
	}

	stored := msg.Clone()
	t.messages = append(t.messages, stored)

	for _, sub := range t.subscribers {
		select {
		case sub <- stored.Clone():
		default:
			t.dropped++
		}
	}

	return nil
}

// Len returns the number of appended messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns a copy of the most recent message, or nil when empty.
func (t *Transcript) Last() *core.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return nil
	}
	last := t.messages[len(t.messages)-1].Clone()
	return &last
}

// History returns a copy of all messages in append order.
func (t *Transcript) History() []core.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

// All returns a finite, restartable sequence over the messages appended so
// far. Every call replays from the start against a fresh snapshot.
func (t *Transcript) All() iter.Seq[core.Message] {
	snapshot := t.History()
	return func(yield func(core.Message) bool) {
		for _, m := range snapshot {
			if !yield(m) {
				return
			}
		}
	}
}

// Subscribe registers a live observer and returns its delivery channel. The
// channel is buffered; if the observer falls behind, messages are dropped
// rather than blocking the writer. The channel is closed by Close.
func (t *Transcript) Subscribe() <-chan core.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan core.Message, DefaultSubscriberBuffer)
	if t.closed {
		close(ch)
		return ch
	}
	t.subscribers = append(t.subscribers, ch)
	return ch
}

// Dropped returns how many subscriber deliveries were skipped.
func (t *Transcript) Dropped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// Close seals the transcript and closes all subscriber channels. Appending
// after Close fails. Close is idempotent.
func (t *Transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, sub := range t.subscribers {
		close(sub)
	}
	t.subscribers = nil
}
