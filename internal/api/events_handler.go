package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/events"
)

const keepAliveInterval = 15 * time.Second

// typeFilter selects events by type. Entries ending in ".*" match a whole
// family, so "chat.*" covers chat.focus, chat.send and chat.reply. An empty
// filter passes everything.
type typeFilter []string

func parseTypeFilter(raw string) typeFilter {
	var f typeFilter
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			f = append(f, t)
		}
	}
	return f
}

func (f typeFilter) allows(eventType string) bool {
	if len(f) == 0 {
		return true
	}
	for _, t := range f {
		if family, ok := strings.CutSuffix(t, ".*"); ok {
			if strings.HasPrefix(eventType, family+".") {
				return true
			}
			continue
		}
		if t == eventType {
			return true
		}
	}
	return false
}

// handleEvents streams hub events as SSE. Last-Event-ID resumes from the ring
// buffer; ?types= narrows the stream for clients such as the host extension
// that only apply edits and chat requests.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	filter := parseTypeFilter(r.URL.Query().Get("types"))

	// Subscribe before replaying so nothing published in between is lost.
	live, unsubscribe := s.deps.Events.Subscribe()
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	cursor := parseLastEventID(r.Header.Get("Last-Event-ID"))
	for _, ev := range s.deps.Events.SnapshotSince(cursor) {
		cursor = ev.ID
		if !filter.allows(ev.Type) {
			continue
		}
		if err := writeSSE(w, ev); err != nil {
			return
		}
	}
	flusher.Flush()

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-live:
			if !open {
				return
			}
			// Replayed already, or not wanted.
			if ev.ID <= cursor || !filter.allows(ev.Type) {
				continue
			}
			cursor = ev.ID
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseLastEventID(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// writeSSE frames one event. Hub payloads are compact JSON, so a single data
// line is enough.
func writeSSE(w http.ResponseWriter, ev events.Event) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, ev.Data)
	return err
}
