package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/actions"
	"github.com/mattjoyce/cursor-voice/internal/session"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if s.deps.Source != nil {
		resp.RecognizerConnected = s.deps.Source.Connected()
	}
	if s.deps.Events != nil {
		resp.EventSubscribers = s.deps.Events.Subscribers()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Session.Start(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Session.Stop(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Session.Status(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrCapabilityUnavailable):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrLoopClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("session request failed", "error", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleGetEditorContext(w http.ResponseWriter, r *http.Request) {
	ec, updatedAt, ok := s.deps.Editor.Snapshot()
	if !ok {
		s.writeError(w, http.StatusNotFound, actions.ErrNoActiveContext.Error())
		return
	}
	respondJSON(w, http.StatusOK, EditorContextResponse{EditContext: ec, UpdatedAt: updatedAt})
}

func (s *Server) handlePutEditorContext(w http.ResponseWriter, r *http.Request) {
	var ec actions.EditContext
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ec); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Editor.Update(ec); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteEditorContext(w http.ResponseWriter, r *http.Request) {
	s.deps.Editor.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
