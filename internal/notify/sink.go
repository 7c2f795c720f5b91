// Package notify delivers user-facing messages to the host over the event hub.
package notify

import (
	"log/slog"

	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/log"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warning"
	LevelError = "error"
)

// Publisher is the subset of events.Hub the sink needs.
type Publisher interface {
	Publish(eventType string, data any) events.Event
}

// Message is the payload of a notify event.
type Message struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Sink publishes notifications and mirrors them to the log.
type Sink struct {
	pub    Publisher
	logger *slog.Logger
}

func NewSink(pub Publisher) *Sink {
	return &Sink{pub: pub, logger: log.WithComponent("notify")}
}

func (s *Sink) Info(msg string) {
	s.logger.Info(msg)
	s.publish(LevelInfo, msg)
}

func (s *Sink) Warn(msg string) {
	s.logger.Warn(msg)
	s.publish(LevelWarn, msg)
}

func (s *Sink) Error(msg string) {
	s.logger.Error(msg)
	s.publish(LevelError, msg)
}

func (s *Sink) publish(level, msg string) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(events.TypeNotify, Message{Level: level, Message: msg})
}
