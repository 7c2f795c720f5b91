package chat

import (
	"context"
	"errors"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/events"
)

// ErrPanelUnreachable means no host is attached to receive the message.
var ErrPanelUnreachable = errors.New("chat panel unreachable: no host subscribed to events")

// Hub is the subset of events.Hub the providers need.
type Hub interface {
	Publish(eventType string, data any) events.Event
	Subscribers() int
}

// Message is the payload of chat.send and the body of webhook requests.
type Message struct {
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Events forwards chat operations to the host over the event hub.
type Events struct {
	hub Hub
	now func() time.Time
}

func NewEvents(hub Hub) *Events {
	return &Events{hub: hub, now: time.Now}
}

func (e *Events) Focus(context.Context) error {
	if e.hub.Subscribers() == 0 {
		return ErrPanelUnreachable
	}
	e.hub.Publish(events.TypeChatFocus, nil)
	return nil
}

func (e *Events) Send(_ context.Context, text string) error {
	if e.hub.Subscribers() == 0 {
		return ErrPanelUnreachable
	}
	e.hub.Publish(events.TypeChatSend, Message{Text: text, SentAt: e.now().UTC()})
	return nil
}
