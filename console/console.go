// Package console renders the live message stream of a session for terminal
// display. It consumes a transcript subscription on its own goroutine so a
// slow terminal never blocks the orchestrator.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/transcript"
)

var (
	senderStyle = color.New(color.FgCyan, color.Bold)
	toolStyle   = color.New(color.FgYellow)
	errorStyle  = color.New(color.FgRed)
	metaStyle   = color.New(color.Faint)
)

// Sink writes each appended message to w as it arrives.
type Sink struct {
	w    io.Writer
	done chan struct{}
	once sync.Once
}

// Attach subscribes to the transcript and starts rendering. Call Wait after
// the session ends to let the sink drain.
func Attach(t *transcript.Transcript, w io.Writer) *Sink {
	if w == nil {
		w = os.Stdout
	}
	s := &Sink{w: w, done: make(chan struct{})}
	ch := t.Subscribe()
	go s.run(ch)
	return s
}

func (s *Sink) run(ch <-chan core.Message) {
	defer close(s.done)
	for msg := range ch {
		s.render(msg)
	}
}

// Wait blocks until the subscription is closed and all output is written.
func (s *Sink) Wait() {
	<-s.done
}

func (s *Sink) render(msg core.Message) {
	fmt.Fprintf(s.w, "%s %s\n",
		senderStyle.Sprintf("[%s]", msg.Sender),
		metaStyle.Sprintf("(turn %d, %s)", msg.TurnIndex, msg.Timestamp.Format("15:04:05")),
	)
	for _, inv := range msg.ToolCalls {
		if inv.Failed() {
			fmt.Fprintf(s.w, "  %s %s\n",
				toolStyle.Sprintf("⚙ %s", inv.Tool),
				errorStyle.Sprintf("failed [%s]: %s", inv.ErrorKind, inv.ErrorDetail),
			)
			continue
		}
		fmt.Fprintf(s.w, "  %s ok\n", toolStyle.Sprintf("⚙ %s", inv.Tool))
	}
	if msg.Content != "" {
		fmt.Fprintln(s.w, msg.Content)
	}
	fmt.Fprintln(s.w)
}
