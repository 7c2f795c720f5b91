package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/cursor-voice/internal/command"
	"github.com/mattjoyce/cursor-voice/internal/dispatch"
	"github.com/mattjoyce/cursor-voice/internal/log"
	"github.com/mattjoyce/cursor-voice/internal/protocol"
)

// ErrCapabilityUnavailable means the recognizer reported that speech
// recognition is not supported where it runs.
var ErrCapabilityUnavailable = errors.New("speech recognition is not supported")

// State is the listening state of a session.
type State int

const (
	Stopped State = iota
	Listening
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Listening:
		return "listening"
	default:
		return "unknown"
	}
}

// Source is the transcript source control surface.
type Source interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// Notifier presents messages to the user.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	SessionID    string                `json:"session_id,omitempty"`
	State        string                `json:"state"`
	Listening    bool                  `json:"listening"`
	SourceReady  bool                  `json:"source_ready"`
	Unsupported  bool                  `json:"unsupported,omitempty"`
	LastDispatch *int64                `json:"last_dispatch,omitempty"`
	Commands     []command.Description `json:"commands"`
}

// Options configures a Controller.
type Options struct {
	Source         Source
	Notifier       Notifier
	Observer       dispatch.Observer
	CommandTimeout time.Duration
	// Stage and Send are the editor-facing actions bound to the built-in
	// message and send commands.
	Stage command.Action
	Send  command.Action
	// ExtraPhrases adds phrases to built-in commands by name.
	ExtraPhrases map[string][]string
	// OnStateChange is called after every listening transition.
	OnStateChange func(Status)
}

// Controller gates dispatch on the listening state.
type Controller struct {
	source     Source
	notify     Notifier
	dispatcher *dispatch.Dispatcher
	registry   *command.Registry
	onChange   func(Status)
	logger     *slog.Logger

	state               dispatch.State
	sessionID           string
	sourceReady         bool
	unsupported         bool
	unsupportedReported bool
	// haltReported is set once a fatal recognizer error has been reported
	// and cleared by the next Start, so a page retrying against a denied
	// microphone yields one notice per stopped period.
	haltReported bool
}

// New builds the command registry and the dispatcher around it.
func New(opts Options) (*Controller, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("session: source is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("session: notifier is required")
	}
	if opts.Stage == nil || opts.Send == nil {
		return nil, fmt.Errorf("session: stage and send actions are required")
	}

	c := &Controller{
		source:   opts.Source,
		notify:   opts.Notifier,
		onChange: opts.OnStateChange,
		logger:   log.WithComponent("session"),
	}

	reg, err := command.NewBuiltinRegistry(command.Bindings{
		Start:   func(ctx context.Context, _ command.Match) { _ = c.Start(ctx) },
		Stop:    func(ctx context.Context, _ command.Match) { _ = c.Stop(ctx) },
		Message: opts.Stage,
		Send:    opts.Send,
	}, opts.ExtraPhrases)
	if err != nil {
		return nil, fmt.Errorf("session: build registry: %w", err)
	}
	c.registry = reg
	c.dispatcher = dispatch.New(reg, opts.CommandTimeout, opts.Observer)
	return c, nil
}

// State returns the current listening state.
func (c *Controller) State() State {
	if c.state.Listening {
		return Listening
	}
	return Stopped
}

// Start moves Stopped to Listening. It is a no-op while listening.
func (c *Controller) Start(ctx context.Context) error {
	if c.state.Listening {
		return nil
	}
	if c.unsupported {
		c.logger.Warn("start refused: recognizer reported speech recognition unsupported")
		return ErrCapabilityUnavailable
	}

	if err := c.source.Activate(ctx); err != nil {
		c.logger.Error("failed to activate transcript source", "error", err)
		c.notify.Error("Failed to start voice recognition: " + err.Error())
		return fmt.Errorf("activate source: %w", err)
	}

	c.sessionID = uuid.NewString()
	c.state.Listening = true
	c.haltReported = false
	c.logger = log.WithSession("session", c.sessionID)
	c.logger.Info("listening started")
	c.notify.Info("Voice commands activated")
	c.changed()
	return nil
}

// Stop moves Listening to Stopped. It is a no-op while stopped. The gate closes
// before the source is told to stop, so nothing queued behind this call can
// dispatch.
func (c *Controller) Stop(ctx context.Context) error {
	if !c.state.Listening {
		return nil
	}
	err := c.halt(ctx)
	c.notify.Info("Voice commands deactivated")
	c.changed()
	return err
}

// Deactivate tears the controller down at host shutdown.
func (c *Controller) Deactivate(ctx context.Context) error {
	return c.Stop(ctx)
}

// OnTranscript gates and dispatches one transcript event.
func (c *Controller) OnTranscript(ctx context.Context, ev dispatch.Event) dispatch.Outcome {
	return c.dispatcher.OnTranscript(ctx, &c.state, ev)
}

// HandleSourceMessage applies one recognizer frame.
func (c *Controller) HandleSourceMessage(ctx context.Context, msg *protocol.SourceMessage) {
	switch msg.Command {
	case protocol.CommandReady:
		c.sourceReady = true
		c.unsupported = false
		c.unsupportedReported = false
		c.logger.Info("transcript source ready", "engine", msg.Engine)
		if c.state.Listening {
			// A reloaded recognizer starts idle.
			if err := c.source.Activate(ctx); err != nil {
				c.logger.Warn("failed to resume transcript source", "error", err)
			}
		}
	case protocol.CommandTranscript:
		c.OnTranscript(ctx, dispatch.Event{
			Text:      msg.Text,
			IsFinal:   msg.IsFinal,
			Timestamp: msg.Timestamp,
		})
	case protocol.CommandError:
		c.handleSourceError(ctx, msg.Error)
	default:
		c.logger.Warn("ignoring unknown source message", "command", msg.Command)
	}
}

// SourceDisconnected records that the recognizer went away. Listening state
// is kept; the source replays start when a recognizer reconnects.
func (c *Controller) SourceDisconnected() {
	c.sourceReady = false
	c.logger.Info("transcript source disconnected")
}

func (c *Controller) handleSourceError(ctx context.Context, reason string) {
	switch reason {
	case protocol.ReasonNotSupported:
		c.unsupported = true
		wasListening := c.state.Listening
		if wasListening {
			_ = c.halt(ctx)
		}
		if !c.unsupportedReported {
			c.unsupportedReported = true
			c.notify.Error("Speech recognition is not supported by the recognizer. Open the recognizer page in a browser that supports the Web Speech API.")
		}
		if wasListening {
			c.changed()
		}

	case protocol.ReasonNotAllowed, protocol.ReasonServiceNotAllowed:
		c.haltOnce(ctx, reason, "Microphone access was denied. Allow microphone access for the recognizer page, then start voice commands again.")

	case protocol.ReasonAudioCapture:
		c.haltOnce(ctx, reason, "No microphone was found. Connect a microphone or check the recognizer page's input device, then start voice commands again.")

	case protocol.ReasonLanguageNotSupported:
		c.haltOnce(ctx, reason, "The recognizer does not support the configured language. Change voice.language, then start voice commands again.")

	case protocol.ReasonNoSpeech, protocol.ReasonAborted:
		c.logger.Debug("recognizer reported benign error", "reason", reason)

	default:
		c.logger.Warn("recognizer error", "reason", reason)
		c.notify.Error("Speech recognition error: " + reason)
	}
}

// haltOnce forces Stopped for an error the recognizer cannot recover from.
// The notice is sent once until the next Start.
func (c *Controller) haltOnce(ctx context.Context, reason, notice string) {
	wasListening := c.state.Listening
	if wasListening {
		_ = c.halt(ctx)
	}
	if c.haltReported {
		c.logger.Debug("recognizer error already reported", "reason", reason)
	} else {
		c.haltReported = true
		c.logger.Warn("recognizer cannot continue", "reason", reason)
		c.notify.Error(notice)
	}
	if wasListening {
		c.changed()
	}
}

func (c *Controller) halt(ctx context.Context) error {
	c.state.Listening = false
	c.logger.Info("listening stopped")
	if err := c.source.Deactivate(ctx); err != nil {
		c.logger.Warn("failed to deactivate transcript source", "error", err)
		return fmt.Errorf("deactivate source: %w", err)
	}
	return nil
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	st := Status{
		SessionID:   c.sessionID,
		State:       c.State().String(),
		Listening:   c.state.Listening,
		SourceReady: c.sourceReady,
		Unsupported: c.unsupported,
		Commands:    c.registry.Describe(),
	}
	if c.state.Dispatched() {
		last := c.state.LastDispatch
		st.LastDispatch = &last
	}
	return st
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange(c.Status())
	}
}
