package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/cursor-voice/internal/actions"
	"github.com/mattjoyce/cursor-voice/internal/auth"
	"github.com/mattjoyce/cursor-voice/internal/chat"
	"github.com/mattjoyce/cursor-voice/internal/command"
	"github.com/mattjoyce/cursor-voice/internal/editor"
	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/history"
	"github.com/mattjoyce/cursor-voice/internal/log"
	"github.com/mattjoyce/cursor-voice/internal/session"
)

type fakeSession struct {
	listening bool
	startErr  error
}

func (f *fakeSession) status() session.Status {
	st := session.Status{State: "stopped", Listening: f.listening}
	if f.listening {
		st.State = "listening"
	}
	return st
}

func (f *fakeSession) Start(context.Context) (session.Status, error) {
	if f.startErr != nil {
		return session.Status{}, f.startErr
	}
	f.listening = true
	return f.status(), nil
}

func (f *fakeSession) Stop(context.Context) (session.Status, error) {
	f.listening = false
	return f.status(), nil
}

func (f *fakeSession) Status(context.Context) (session.Status, error) {
	return f.status(), nil
}

type fakeHistory struct {
	entries   []history.Entry
	lastLimit int
}

func (f *fakeHistory) List(_ context.Context, limit int) ([]history.Entry, error) {
	f.lastLimit = limit
	return f.entries, nil
}

type fakeSource bool

func (f fakeSource) Connected() bool { return bool(f) }

type harness struct {
	srv     *httptest.Server
	session *fakeSession
	editor  *editor.Workspace
	history *fakeHistory
	hub     *events.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		session: &fakeSession{},
		history: &fakeHistory{},
		hub:     events.NewHub(32),
	}
	h.editor = editor.NewWorkspace(h.hub)

	s := New(Config{
		APIKey: "admin",
		Tokens: []auth.TokenConfig{
			{Token: "host", Scopes: []string{"session:rw", "editor:rw", "events:ro"}},
			{Token: "viewer", Scopes: []string{"session:ro", "history:ro"}},
		},
	}, Deps{
		Session:  h.session,
		Editor:   h.editor,
		History:  h.history,
		Source:   fakeSource(true),
		Events:   h.hub,
		Commands: []command.Description{{Name: "start", Description: "Start listening"}},
	}, log.Discard())

	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthzIsPublic(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[HealthzResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.RecognizerConnected)
}

func TestAuthAndScopes(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/v1/session", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/v1/session", "nope", http.StatusUnauthorized},
		{"viewer reads session", http.MethodGet, "/v1/session", "viewer", http.StatusOK},
		{"viewer cannot start", http.MethodPost, "/v1/session/start", "viewer", http.StatusForbidden},
		{"host reads via rw", http.MethodGet, "/v1/session", "host", http.StatusOK},
		{"host cannot read history", http.MethodGet, "/v1/history", "host", http.StatusForbidden},
		{"admin reads history", http.MethodGet, "/v1/history", "admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.do(t, tc.method, tc.path, tc.token, "")
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestSessionVerbs(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/v1/session/start", "host", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[session.Status](t, resp).Listening)

	resp = h.do(t, http.MethodPost, "/v1/session/start", "host", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "start is idempotent")

	resp = h.do(t, http.MethodPost, "/v1/session/stop", "host", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stopped", decode[session.Status](t, resp).State)
}

func TestSessionStartErrors(t *testing.T) {
	h := newHarness(t)

	h.session.startErr = session.ErrCapabilityUnavailable
	resp := h.do(t, http.MethodPost, "/v1/session/start", "admin", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	h.session.startErr = session.ErrLoopClosed
	resp = h.do(t, http.MethodPost, "/v1/session/start", "admin", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	h.session.startErr = errors.New("activate source: socket closed")
	resp = h.do(t, http.MethodPost, "/v1/session/start", "admin", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, resp).Error, "socket closed")
}

func TestEditorContextLifecycle(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/v1/editor/context", "host", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/v1/editor/context", "host", `{"document":"main.go","line":4,"line_text":"x := 1","selection":"x"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/v1/editor/context", "host", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[EditorContextResponse](t, resp)
	assert.Equal(t, actions.EditContext{Document: "main.go", Line: 4, LineText: "x := 1", Selection: "x"}, got.EditContext)
	assert.False(t, got.UpdatedAt.IsZero())

	resp = h.do(t, http.MethodPut, "/v1/editor/context", "host", `{"line":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = h.do(t, http.MethodPut, "/v1/editor/context", "host", `{"document":"a","unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/v1/editor/context", "host", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, _, ok := h.editor.Snapshot()
	assert.False(t, ok)
}

func TestHistoryLimit(t *testing.T) {
	h := newHarness(t)
	h.history.entries = []history.Entry{{ID: "1", Command: "send", Text: "send it"}}

	resp := h.do(t, http.MethodGet, "/v1/history?limit=5", "admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, h.history.lastLimit)
	assert.Len(t, decode[HistoryResponse](t, resp).Entries, 1)

	resp = h.do(t, http.MethodGet, "/v1/history?limit=abc", "admin", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryDisabled(t *testing.T) {
	s := New(Config{APIKey: "admin"}, Deps{Events: events.NewHub(4)}, log.Discard())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/history", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer admin")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenAPIListsCommands(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/openapi.json", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := decode[map[string]any](t, resp)
	assert.Equal(t, "3.1.0", doc["openapi"])
	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/v1/session/start")
	cmds := doc["x-voice-commands"].([]any)
	require.Len(t, cmds, 1)
	assert.Equal(t, "start", cmds[0].(map[string]any)["name"])
}

func TestEventsStreamReplaysAndStreams(t *testing.T) {
	h := newHarness(t)
	h.hub.Publish(events.TypeNotify, map[string]string{"message": "old"})
	h.hub.Publish(events.TypeNotify, map[string]string{"message": "replayed"})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer host")
	req.Header.Set("Last-Event-ID", "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (id, typ, data string) {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if id != "" {
					return
				}
			case strings.HasPrefix(line, "id: "):
				id = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "event: "):
				typ = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	id, typ, data := readEvent()
	assert.Equal(t, "2", id)
	assert.Equal(t, events.TypeNotify, typ)
	assert.Contains(t, data, "replayed")

	require.Eventually(t, func() bool { return h.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	h.hub.Publish(events.TypeChatSend, map[string]string{"text": "live"})

	id, typ, data = readEvent()
	assert.Equal(t, "3", id)
	assert.Equal(t, events.TypeChatSend, typ)
	assert.Contains(t, data, "live")
}

func TestChatReplyHook(t *testing.T) {
	hub := events.NewHub(8)
	s := New(Config{APIKey: "admin", ChatReplySecret: "hook-secret"}, Deps{Events: hub}, log.Discard())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	post := func(body, signature string) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/hooks/chat-reply", strings.NewReader(body))
		require.NoError(t, err)
		if signature != "" {
			req.Header.Set(chat.SignatureHeader, signature)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	body := `{"prompt":"fix it","text":"Done, see line 4."}`
	assert.Equal(t, http.StatusForbidden, post(body, ""))
	assert.Equal(t, http.StatusForbidden, post(body, chat.Sign([]byte(body), "wrong")))
	assert.Equal(t, http.StatusBadRequest, post(`{"text":" "}`, chat.Sign([]byte(`{"text":" "}`), "hook-secret")))
	assert.Equal(t, http.StatusAccepted, post(body, chat.Sign([]byte(body), "hook-secret")))

	evs := hub.SnapshotSince(0)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeChatReply, evs[0].Type)
	assert.JSONEq(t, `{"prompt":"fix it","text":"Done, see line 4.","model":""}`, string(evs[0].Data))
}

func TestChatReplyHookDisabledWithoutSecret(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/hooks/chat-reply", "", `{"text":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTypeFilter(t *testing.T) {
	f := parseTypeFilter(" editor.edit, chat.* ,,")
	assert.Equal(t, typeFilter{"editor.edit", "chat.*"}, f)

	assert.True(t, f.allows(events.TypeEditorEdit))
	assert.True(t, f.allows(events.TypeChatSend))
	assert.True(t, f.allows(events.TypeChatReply))
	assert.False(t, f.allows(events.TypeNotify))
	assert.False(t, f.allows("chat"))
	assert.True(t, parseTypeFilter("").allows(events.TypeNotify))
}

func TestEventsStreamFiltersTypes(t *testing.T) {
	h := newHarness(t)
	h.hub.Publish(events.TypeNotify, map[string]string{"message": "skipped"})
	h.hub.Publish(events.TypeEditorEdit, map[string]string{"text": "replayed"})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+"/events?types=editor.edit,chat.*", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer host")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	nextType := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if typ, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "event: "); ok {
				return typ
			}
		}
	}

	assert.Equal(t, events.TypeEditorEdit, nextType())

	require.Eventually(t, func() bool { return h.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	h.hub.Publish(events.TypeNotify, map[string]string{"message": "also skipped"})
	h.hub.Publish(events.TypeChatFocus, nil)

	assert.Equal(t, events.TypeChatFocus, nextType())
}
