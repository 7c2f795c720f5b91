package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/cursor-voice/internal/chat"
	"github.com/mattjoyce/cursor-voice/internal/command"
	"github.com/mattjoyce/cursor-voice/internal/config"
	"github.com/mattjoyce/cursor-voice/internal/dispatch"
	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/history"
	"github.com/mattjoyce/cursor-voice/internal/protocol"
	"github.com/mattjoyce/cursor-voice/internal/session"
	"github.com/mattjoyce/cursor-voice/internal/storage"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(config.EnvConfigPath, "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
api:
  enabled: true
  listen: localhost:0
  auth:
    api_key: secret-admin
chat:
  provider: webhook
  webhook:
    url: https://example.test/hook
    secret: hook-secret
`

func TestVersionJSON(t *testing.T) {
	out, err := runCLI(t, "version", "--json")
	require.NoError(t, err)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
}

func TestNormalizeBuildTimeUTC(t *testing.T) {
	got, ok := normalizeBuildTimeUTC("2026-03-01T10:00:00+02:00")
	if !ok || got != "2026-03-01T08:00:00Z" {
		t.Fatalf("normalizeBuildTimeUTC() = %q, %v", got, ok)
	}
	if _, ok := normalizeBuildTimeUTC("unknown"); ok {
		t.Fatal("expected unknown to be rejected")
	}
	if got := shortenCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("shortenCommit() = %q", got)
	}
}

func TestConfigCheckLockAndTamper(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	out, err := runCLI(t, "config", "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "api.auth.api_key", "admin key without scoped tokens is flagged")

	out, err = runCLI(t, "config", "lock", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "HASH config.yaml:")
	assert.FileExists(t, filepath.Join(filepath.Dir(path), config.ChecksumFile))

	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+"\nevents:\n  buffer: 8\n"), 0o600))
	_, err = runCLI(t, "config", "check", "--config", path)
	require.Error(t, err)
}

func TestConfigCheckRejectsShadowedPhrase(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
voice:
  phrases:
    send: ["stop listening"]
`)

	out, err := runCLI(t, "config", "check", "--config", path)
	require.Error(t, err)
	assert.Contains(t, out, "voice.phrases.send[0]")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	out, err := runCLI(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "secret-admin")
	assert.NotContains(t, out, "hook-secret")
	assert.Contains(t, out, redacted)
}

func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer k" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("GET /v1/session", authed(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(session.Status{
			SessionID: "s-1",
			State:     "listening",
			Listening: true,
			Commands:  []command.Description{{Name: "send", Description: "Send to the assistant"}},
		})
	}))
	mux.HandleFunc("POST /v1/session/start", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"speech recognition is not supported"}`))
	}))
	mux.HandleFunc("GET /v1/history", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "3" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entries": []history.Entry{{ID: "1", Command: "message", Text: "hey cursor ship it", Payload: "ship it"}},
		})
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusCommand(t *testing.T) {
	srv := fakeDaemon(t)

	out, err := runCLI(t, "status", "--api-url", srv.URL, "--api-key", "k")
	require.NoError(t, err)
	assert.Contains(t, out, "state: listening")
	assert.Contains(t, out, "session: s-1")
	assert.Contains(t, out, "Send to the assistant")

	_, err = runCLI(t, "status", "--api-url", srv.URL, "--api-key", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestStartCommandSurfacesAPIError(t *testing.T) {
	srv := fakeDaemon(t)

	_, err := runCLI(t, "start", "--api-url", srv.URL, "--api-key", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
	assert.Contains(t, err.Error(), "409")
}

func TestHistoryCommand(t *testing.T) {
	srv := fakeDaemon(t)

	out, err := runCLI(t, "history", "-n", "3", "--api-url", srv.URL, "--api-key", "k")
	require.NoError(t, err)
	assert.Contains(t, out, "COMMAND")
	assert.Contains(t, out, "ship it")
}

func TestResolveClientFallsBackToConfig(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvAPIKey, "")
	path := writeConfig(t, strings.Replace(minimalConfig, "localhost:0", "localhost:9999", 1))

	c := resolveClient(&globalFlags{configPath: path})
	assert.Equal(t, "http://localhost:9999", c.baseURL)
	assert.Equal(t, "secret-admin", c.apiKey)

	t.Setenv(EnvAPIKey, "from-env")
	c = resolveClient(&globalFlags{configPath: path, apiURL: "http://h:1/"})
	assert.Equal(t, "http://h:1", c.baseURL)
	assert.Equal(t, "from-env", c.apiKey)
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	path := writeConfig(t, minimalConfig+"history:\n  path: "+dbPath+"\n")

	db, err := storage.OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	store := history.NewStore(db, 0)
	store.SetSession("sess-9")
	_, err = store.Record(context.Background(), dispatch.Detection{Command: "send", Text: "send it", Timestamp: 5})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := runCLI(t, "inspect", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Session     : sess-9")

	_, err = runCLI(t, "inspect", "unknown", "--config", path)
	require.Error(t, err)
}

func TestNewChat(t *testing.T) {
	hub := events.NewHub(4)

	c, err := newChat(config.ChatConfig{Provider: config.ChatEvents}, hub)
	require.NoError(t, err)
	assert.IsType(t, &chat.Events{}, c)

	c, err = newChat(config.ChatConfig{Provider: config.ChatWebhook, Webhook: config.WebhookConfig{URL: "http://x"}}, hub)
	require.NoError(t, err)
	assert.IsType(t, &chat.Webhook{}, c)

	c, err = newChat(config.ChatConfig{Provider: config.ChatOpenAI, OpenAI: config.OpenAIConfig{APIKey: "k", Model: "m"}}, hub)
	require.NoError(t, err)
	assert.IsType(t, &chat.OpenAI{}, c)

	_, err = newChat(config.ChatConfig{Provider: "carrier-pigeon"}, hub)
	require.Error(t, err)
}

type countingSink struct {
	delivered    []*protocol.SourceMessage
	disconnected int
}

func (s *countingSink) Deliver(_ context.Context, msg *protocol.SourceMessage) error {
	s.delivered = append(s.delivered, msg)
	return nil
}

func (s *countingSink) Disconnected(context.Context) error {
	s.disconnected++
	return nil
}

func TestSourceEventsMirrorsAttachment(t *testing.T) {
	hub := events.NewHub(8)
	sink := &countingSink{}
	se := sourceEvents{sink: sink, hub: hub}

	require.NoError(t, se.Deliver(context.Background(), &protocol.SourceMessage{Command: protocol.CommandReady, Engine: "webkitSpeechRecognition"}))
	require.NoError(t, se.Deliver(context.Background(), &protocol.SourceMessage{Command: protocol.CommandTranscript, Text: "hi"}))
	require.NoError(t, se.Disconnected(context.Background()))

	assert.Len(t, sink.delivered, 2)
	assert.Equal(t, 1, sink.disconnected)

	evs := hub.SnapshotSince(0)
	require.Len(t, evs, 2)
	assert.Equal(t, events.TypeSourceState, evs[0].Type)
	assert.JSONEq(t, `{"connected":true,"ready":true,"engine":"webkitSpeechRecognition"}`, string(evs[0].Data))
	assert.JSONEq(t, `{"connected":false,"ready":false}`, string(evs[1].Data))
}
