package api

import (
	"time"

	"github.com/mattjoyce/cursor-voice/internal/actions"
	"github.com/mattjoyce/cursor-voice/internal/history"
)

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status              string `json:"status"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
	RecognizerConnected bool   `json:"recognizer_connected"`
	EventSubscribers    int    `json:"event_subscribers"`
}

// EditorContextResponse is returned by GET /v1/editor/context.
type EditorContextResponse struct {
	actions.EditContext
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryResponse is returned by GET /v1/history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}
