// Package api is the daemon's HTTP control surface: session verbs, the editor
// context feed, command history and the SSE event stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/cursor-voice/internal/actions"
	"github.com/mattjoyce/cursor-voice/internal/auth"
	"github.com/mattjoyce/cursor-voice/internal/command"
	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/history"
	"github.com/mattjoyce/cursor-voice/internal/session"
)

// SessionController is the serialized session surface (session.Loop).
type SessionController interface {
	Start(ctx context.Context) (session.Status, error)
	Stop(ctx context.Context) (session.Status, error)
	Status(ctx context.Context) (session.Status, error)
}

// EditorContext stores the host's active editing context (editor.Workspace).
type EditorContext interface {
	Update(ec actions.EditContext) error
	Clear()
	Snapshot() (actions.EditContext, time.Time, bool)
}

// HistoryReader lists recorded commands (history.Store).
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// SourceStatus reports recognizer attachment (bridge.Server).
type SourceStatus interface {
	Connected() bool
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is the admin bearer token (scope "*").
	APIKey string
	// Tokens is an optional list of scoped bearer tokens.
	Tokens []auth.TokenConfig
	// ChatReplySecret enables POST /hooks/chat-reply, authenticated by an
	// HMAC signature instead of a bearer token.
	ChatReplySecret string
}

// Deps are the collaborators the API serves.
type Deps struct {
	Session  SessionController
	Editor   EditorContext
	History  HistoryReader
	Source   SourceStatus
	Events   *events.Hub
	Commands []command.Description
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	deps      Deps
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance
func New(config Config, deps Deps, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		deps:      deps,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler configures the HTTP router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/openapi.json", s.handleOpenAPI)
	if s.config.ChatReplySecret != "" {
		r.Post("/hooks/chat-reply", s.handleChatReply)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.With(s.requireScopes(auth.ScopeSessionRW)).Post("/v1/session/start", s.handleSessionStart)
		r.With(s.requireScopes(auth.ScopeSessionRW)).Post("/v1/session/stop", s.handleSessionStop)
		r.With(s.requireScopes(auth.ScopeSessionRO)).Get("/v1/session", s.handleSessionStatus)

		r.With(s.requireScopes(auth.ScopeEditorRW)).Get("/v1/editor/context", s.handleGetEditorContext)
		r.With(s.requireScopes(auth.ScopeEditorRW)).Put("/v1/editor/context", s.handlePutEditorContext)
		r.With(s.requireScopes(auth.ScopeEditorRW)).Delete("/v1/editor/context", s.handleDeleteEditorContext)

		r.With(s.requireScopes(auth.ScopeHistoryRO)).Get("/v1/history", s.handleHistory)
		r.With(s.requireScopes(auth.ScopeEventsRO)).Get("/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// authMiddleware resolves the bearer token to a principal.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		principal, ok := auth.Authenticate(token, s.config.APIKey, s.config.Tokens)
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

func (s *Server) requireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := auth.PrincipalFromContext(r.Context())
			if !auth.HasAnyScope(principal, scopes...) {
				s.writeError(w, http.StatusForbidden, "insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
