// Package editor tracks the host editor's active editing context.
//
// The host extension pushes a snapshot whenever the cursor or selection
// changes. Edits requested by voice commands are applied to the snapshot and
// published as editor.edit events for the host to replay on the real buffer.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/actions"
	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/log"
)

// Publisher is the subset of events.Hub the workspace needs.
type Publisher interface {
	Publish(eventType string, data any) events.Event
}

// Edit is the payload of an editor.edit event.
type Edit struct {
	Document string `json:"document"`
	Line     int    `json:"line"`
	Text     string `json:"text"`
}

// Workspace is safe for concurrent use: the API writes snapshots while the
// session loop reads them.
type Workspace struct {
	pub    Publisher
	logger *slog.Logger

	mu        sync.RWMutex
	current   *actions.EditContext
	updatedAt time.Time
}

func NewWorkspace(pub Publisher) *Workspace {
	return &Workspace{pub: pub, logger: log.WithComponent("editor")}
}

// Update replaces the active editing context.
func (w *Workspace) Update(ec actions.EditContext) error {
	if ec.Document == "" {
		return fmt.Errorf("document is required")
	}
	if ec.Line < 0 {
		return fmt.Errorf("line must be >= 0")
	}
	w.mu.Lock()
	w.current = &ec
	w.updatedAt = time.Now().UTC()
	w.mu.Unlock()
	return nil
}

// Clear forgets the active editing context, e.g. when the host closes the
// last editor.
func (w *Workspace) Clear() {
	w.mu.Lock()
	w.current = nil
	w.mu.Unlock()
}

// Snapshot returns the current context and when it was pushed.
func (w *Workspace) Snapshot() (actions.EditContext, time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.current == nil {
		return actions.EditContext{}, time.Time{}, false
	}
	return *w.current, w.updatedAt, true
}

func (w *Workspace) ActiveContext(context.Context) (actions.EditContext, error) {
	ec, _, ok := w.Snapshot()
	if !ok {
		return actions.EditContext{}, actions.ErrNoActiveContext
	}
	return ec, nil
}

func (w *Workspace) ReplaceLine(_ context.Context, document string, line int, text string) error {
	w.mu.Lock()
	if w.current == nil || w.current.Document != document {
		w.mu.Unlock()
		return actions.ErrNoActiveContext
	}
	if w.current.Line == line {
		w.current.LineText = text
	}
	w.mu.Unlock()

	w.logger.Debug("replacing line", "document", document, "line", line)
	w.pub.Publish(events.TypeEditorEdit, Edit{Document: document, Line: line, Text: text})
	return nil
}
