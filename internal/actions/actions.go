// Package actions adapts matched voice commands to editor and chat operations.
//
// Every handler is a boundary: failures are reported through the Notifier and
// never returned to the dispatcher, so a missing editor or an unreachable chat
// panel cannot end a listening session.
package actions

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mattjoyce/cursor-voice/internal/command"
	"github.com/mattjoyce/cursor-voice/internal/log"
)

//go:generate mockgen -destination=mocks/mock_actions.go -package=mocks github.com/mattjoyce/cursor-voice/internal/actions Editor,Chat,Notifier

// ErrNoActiveContext is returned by an Editor when no document is focused.
var ErrNoActiveContext = errors.New("no active editing context")

// EditContext is the editor state the handlers act on.
type EditContext struct {
	Document  string `json:"document"`
	Line      int    `json:"line"`
	LineText  string `json:"line_text"`
	Selection string `json:"selection,omitempty"`
}

// Editor is the editing-context provider.
type Editor interface {
	ActiveContext(ctx context.Context) (EditContext, error)
	ReplaceLine(ctx context.Context, document string, line int, text string) error
}

// Chat is the assistant chat-panel provider.
type Chat interface {
	Focus(ctx context.Context) error
	Send(ctx context.Context, text string) error
}

// Notifier presents messages to the user. Fire-and-forget.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Handlers implements the editor-facing voice commands.
type Handlers struct {
	editor Editor
	chat   Chat
	notify Notifier
	logger *slog.Logger
}

// New creates the action handlers.
func New(editor Editor, chat Chat, notify Notifier) *Handlers {
	return &Handlers{
		editor: editor,
		chat:   chat,
		notify: notify,
		logger: log.WithComponent("actions"),
	}
}

// StageMessage replaces the current line with the dictated payload. The text
// then waits in the editor for an explicit send.
func (h *Handlers) StageMessage(ctx context.Context, m command.Match) {
	text := strings.TrimSpace(m.Payload)
	if text == "" {
		h.notify.Info("Nothing to stage: say a message after the greeting")
		return
	}

	ec, err := h.editor.ActiveContext(ctx)
	if err != nil {
		h.reportContextError("stage message", err)
		return
	}

	if err := h.editor.ReplaceLine(ctx, ec.Document, ec.Line, text); err != nil {
		h.logger.Warn("replace line failed", "document", ec.Document, "line", ec.Line, "error", err)
		h.notify.Error("Could not stage message: " + err.Error())
		return
	}

	h.logger.Info("message staged", "document", ec.Document, "line", ec.Line, "chars", len(text))
	h.notify.Info("Message staged: " + text)
}

// SendToAssistant submits the selection, or the current line when nothing is
// selected, to the chat panel.
func (h *Handlers) SendToAssistant(ctx context.Context, m command.Match) {
	ec, err := h.editor.ActiveContext(ctx)
	if err != nil {
		h.reportContextError("send to assistant", err)
		return
	}

	text := strings.TrimSpace(ec.Selection)
	if text == "" {
		text = strings.TrimSpace(ec.LineText)
	}
	if text == "" {
		h.notify.Warn("Nothing to send: select text or stage a message first")
		return
	}

	if err := h.chat.Focus(ctx); err != nil {
		h.logger.Debug("chat focus failed", "error", err)
	}
	if err := h.chat.Send(ctx, text); err != nil {
		h.logger.Warn("chat send failed", "error", err)
		h.notify.Error("Failed to send message to assistant: " + err.Error())
		return
	}

	h.logger.Info("message sent to assistant", "chars", len(text))
	h.notify.Info("Message sent to assistant")
}

func (h *Handlers) reportContextError(op string, err error) {
	if errors.Is(err, ErrNoActiveContext) {
		h.notify.Warn("No active editor: open a file to " + op)
		return
	}
	h.logger.Warn("editor context unavailable", "op", op, "error", err)
	h.notify.Error("Editor unavailable: " + err.Error())
}
