package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/command"
	"github.com/mattjoyce/cursor-voice/internal/log"
)

// Outcome describes what OnTranscript did with an event.
type Outcome string

const (
	OutcomeNotListening Outcome = "not_listening"
	OutcomeInterim      Outcome = "interim"
	OutcomeEmpty        Outcome = "empty"
	OutcomeDebounced    Outcome = "debounced"
	OutcomeNoMatch      Outcome = "no_match"
	OutcomeDispatched   Outcome = "dispatched"
)

// Dispatcher matches final transcripts against the registry and runs actions.
type Dispatcher struct {
	registry Matcher
	timeout  int64
	observer Observer
	logger   *slog.Logger
}

// New creates a Dispatcher. A non-positive timeout selects DefaultCommandTimeout.
func New(registry Matcher, timeout time.Duration, observer Observer) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if observer == nil {
		observer = Observers(nil)
	}
	return &Dispatcher{
		registry: registry,
		timeout:  timeout.Milliseconds(),
		observer: observer,
		logger:   log.WithComponent("dispatch"),
	}
}

// OnTranscript processes one event against state. It must not be called
// concurrently; callers serialize delivery.
func (d *Dispatcher) OnTranscript(ctx context.Context, state *State, ev Event) Outcome {
	if !state.Listening {
		return OutcomeNotListening
	}

	if !ev.IsFinal {
		d.observer.Interim(ev)
		return OutcomeInterim
	}

	text := command.Normalize(ev.Text)
	if text == "" {
		return OutcomeEmpty
	}

	if state.dispatched && ev.Timestamp-state.LastDispatch < d.timeout {
		d.logger.Debug("transcript debounced",
			"text", text,
			"timestamp", ev.Timestamp,
			"last_dispatch", state.LastDispatch,
		)
		return OutcomeDebounced
	}

	m, ok := d.registry.Match(text)
	if !ok {
		d.logger.Debug("no command matched", "text", text)
		return OutcomeNoMatch
	}

	d.logger.Info("command matched", "command", m.Name(), "timestamp", ev.Timestamp)
	d.invoke(ctx, m)

	// A stop command may have flipped Listening; the dispatch still counts.
	// Passing the debounce check guarantees the timestamp moved forward.
	state.LastDispatch = ev.Timestamp
	state.dispatched = true

	d.observer.CommandDetected(Detection{
		Command:   m.Name(),
		Text:      m.Text,
		Payload:   m.Payload,
		Timestamp: ev.Timestamp,
	})
	return OutcomeDispatched
}

// invoke runs the action, containing any panic so one broken handler cannot
// take the session down.
func (d *Dispatcher) invoke(ctx context.Context, m command.Match) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command action panicked", "command", m.Name(), "panic", r)
		}
	}()
	m.Spec.Action(ctx, m)
}
