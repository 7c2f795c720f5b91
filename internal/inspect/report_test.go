package inspect

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/cursor-voice/internal/dispatch"
	"github.com/mattjoyce/cursor-voice/internal/history"
	"github.com/mattjoyce/cursor-voice/internal/storage"
)

func seededStore(t *testing.T) *history.Store {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := history.NewStore(db, 0)
	ctx := context.Background()
	record := func(d dispatch.Detection) {
		if _, err := s.Record(ctx, d); err != nil {
			t.Fatalf("Record(%s): %v", d.Command, err)
		}
	}

	s.SetSession("older")
	record(dispatch.Detection{Command: "send", Text: "send it", Timestamp: 50})

	s.SetSession("sess-42")
	record(dispatch.Detection{Command: "message", Text: "hey cursor add a test", Payload: "add a test", Timestamp: 1000})
	record(dispatch.Detection{Command: "send", Text: "send it", Timestamp: 4500})
	return s
}

func TestBuildReportDefaultsToLatestSession(t *testing.T) {
	t.Parallel()
	s := seededStore(t)

	out, err := BuildReport(context.Background(), s, "")
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	for _, want := range []string{
		"Session     : sess-42",
		"Commands    : 2 (message=1, send=1)",
		"[1] message  +0s",
		"    payload : add a test",
		"[2] send  +3.5s",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestBuildJSONReport(t *testing.T) {
	t.Parallel()
	s := seededStore(t)

	out, err := BuildJSONReport(context.Background(), s, "older")
	if err != nil {
		t.Fatalf("BuildJSONReport: %v", err)
	}
	var r Report
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.SessionID != "older" || r.Commands != 1 || r.ByCommand["send"] != 1 {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestBuildReportErrors(t *testing.T) {
	t.Parallel()
	s := seededStore(t)

	if _, err := BuildReport(context.Background(), s, "nope"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}

	db, err := storage.OpenSQLite(context.Background(), storage.MemoryPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	if _, err := BuildReport(context.Background(), history.NewStore(db, 0), ""); err == nil || !strings.Contains(err.Error(), "no sessions") {
		t.Fatalf("expected no sessions error, got %v", err)
	}
}
