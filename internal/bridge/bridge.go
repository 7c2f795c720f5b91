// Package bridge connects a browser-hosted speech recognizer to the daemon.
//
// The recognizer page is served at / and talks back over a websocket at /ws
// using the frames defined in package protocol. At most one recognizer is
// attached at a time; a newer connection replaces the older one.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/mattjoyce/cursor-voice/internal/log"
	"github.com/mattjoyce/cursor-voice/internal/protocol"
)

// Sink receives recognizer frames in arrival order.
type Sink interface {
	Deliver(ctx context.Context, msg *protocol.SourceMessage) error
	Disconnected(ctx context.Context) error
}

// Config holds bridge server configuration.
type Config struct {
	Listen   string
	Language string
}

// Server serves the recognizer page and relays frames. It implements
// session.Source.
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
	server   *http.Server
	epoch    time.Time
	baseCtx  context.Context

	mu     sync.Mutex
	sink   Sink
	conn   *recognizerConn
	lastTS int64
}

func New(config Config) *Server {
	if config.Language == "" {
		config.Language = "en-US"
	}
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameHost,
		},
		logger:  log.WithComponent("bridge"),
		epoch:   time.Now(),
		baseCtx: context.Background(),
	}
}

// Attach sets the destination for recognizer frames. It must be called
// before the first recognizer connects.
func (s *Server) Attach(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Handler returns the bridge routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// Start serves until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("recognizer bridge starting", "listen", s.config.Listen, "language", s.config.Language)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("recognizer bridge shutting down")
		s.closeConn()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("bridge shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("bridge server error: %w", err)
	}
}

// Activate asks the attached recognizer to start. With no recognizer
// attached it succeeds; the session re-sends start once one reports ready.
func (s *Server) Activate(context.Context) error {
	c := s.current()
	if c == nil {
		s.logger.Info("no recognizer attached; open the recognizer page to begin", "listen", s.config.Listen)
		return nil
	}
	return c.send(protocol.Control{Command: protocol.CommandStart, Language: s.config.Language})
}

// Deactivate asks the attached recognizer to stop.
func (s *Server) Deactivate(context.Context) error {
	c := s.current()
	if c == nil {
		return nil
	}
	return c.send(protocol.Control{Command: protocol.CommandStop})
}

// Connected reports whether a recognizer is attached.
func (s *Server) Connected() bool {
	return s.current() != nil
}

func (s *Server) current() *recognizerConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := newRecognizerConn(ws, s.logger.With("remote", r.RemoteAddr))

	s.mu.Lock()
	prev := s.conn
	s.conn = c
	s.mu.Unlock()
	if prev != nil {
		s.logger.Info("replacing recognizer connection")
		prev.close()
	}
	s.logger.Info("recognizer connected", "remote", r.RemoteAddr)

	s.readLoop(c)
}

func (s *Server) readLoop(c *recognizerConn) {
	defer func() {
		c.close()
		s.mu.Lock()
		isCurrent := s.conn == c
		if isCurrent {
			s.conn = nil
		}
		sink := s.sink
		s.mu.Unlock()

		if isCurrent && sink != nil {
			if err := sink.Disconnected(s.baseCtx); err != nil {
				s.logger.Debug("disconnect not delivered", "error", err)
			}
		}
		s.logger.Info("recognizer disconnected")
	}()

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("recognizer read ended", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		msg, err := protocol.DecodeSourceMessage(data)
		if err != nil {
			c.logger.Warn("dropping invalid recognizer frame", "error", err)
			continue
		}
		if msg.Command == protocol.CommandTranscript {
			msg.Timestamp = s.stamp()
		}

		s.mu.Lock()
		sink := s.sink
		s.mu.Unlock()
		if sink == nil {
			c.logger.Warn("no sink attached; dropping frame", "command", msg.Command)
			continue
		}
		if err := sink.Deliver(s.baseCtx, msg); err != nil {
			c.logger.Warn("frame not delivered", "command", msg.Command, "error", err)
			return
		}
	}
}

// stamp returns milliseconds since the bridge started, never going backwards
// across recognizer reconnects.
func (s *Server) stamp() int64 {
	now := time.Since(s.epoch).Milliseconds()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now < s.lastTS {
		now = s.lastTS
	}
	s.lastTS = now
	return now
}

func (s *Server) closeConn() {
	s.mu.Lock()
	c := s.conn
	s.conn = nil
	s.mu.Unlock()
	if c != nil {
		c.close()
	}
}

// sameHost accepts requests without an Origin (non-browser clients) and
// browser requests whose Origin matches the Host.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
