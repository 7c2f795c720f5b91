// Package inspect renders a report of one listening session from the command
// history.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/history"
)

// Source is the history read surface the report needs (history.Store).
type Source interface {
	Session(ctx context.Context, sessionID string) ([]history.Entry, error)
	LatestSession(ctx context.Context) (string, error)
}

// Report is the structured JSON representation of a session report.
type Report struct {
	SessionID string         `json:"session_id"`
	First     time.Time      `json:"first_dispatch"`
	Last      time.Time      `json:"last_dispatch"`
	Commands  int            `json:"commands"`
	ByCommand map[string]int `json:"by_command"`
	Steps     []Step         `json:"steps"`
}

// Step is one honored command in the session.
type Step struct {
	N            int       `json:"n"`
	Command      string    `json:"command"`
	Text         string    `json:"text"`
	Payload      string    `json:"payload,omitempty"`
	EventTS      int64     `json:"event_ts"`
	GapMS        int64     `json:"gap_ms"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// BuildReport renders a terminal-friendly report. An empty sessionID selects
// the most recent session.
func BuildReport(ctx context.Context, src Source, sessionID string) (string, error) {
	report, err := gatherReportData(ctx, src, sessionID)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Session Report\n")
	fmt.Fprintf(&out, "Session     : %s\n", report.SessionID)
	fmt.Fprintf(&out, "First       : %s\n", report.First.Local().Format(time.DateTime))
	fmt.Fprintf(&out, "Last        : %s\n", report.Last.Local().Format(time.DateTime))
	fmt.Fprintf(&out, "Commands    : %d (%s)\n", report.Commands, renderCounts(report.ByCommand))
	fmt.Fprintf(&out, "\n")

	for _, step := range report.Steps {
		fmt.Fprintf(&out, "[%d] %s  +%s\n", step.N, step.Command, time.Duration(step.GapMS)*time.Millisecond)
		fmt.Fprintf(&out, "    heard   : %s\n", step.Text)
		if step.Payload != "" {
			fmt.Fprintf(&out, "    payload : %s\n", step.Payload)
		}
	}

	return strings.TrimRight(out.String(), "\n") + "\n", nil
}

// BuildJSONReport returns the machine-readable session report.
func BuildJSONReport(ctx context.Context, src Source, sessionID string) (string, error) {
	report, err := gatherReportData(ctx, src, sessionID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

func gatherReportData(ctx context.Context, src Source, sessionID string) (*Report, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		latest, err := src.LatestSession(ctx)
		if errors.Is(err, history.ErrNoSessions) {
			return nil, fmt.Errorf("no sessions recorded yet")
		}
		if err != nil {
			return nil, err
		}
		sessionID = latest
	}

	entries, err := src.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}

	report := &Report{
		SessionID: sessionID,
		First:     entries[0].DispatchedAt,
		Last:      entries[len(entries)-1].DispatchedAt,
		Commands:  len(entries),
		ByCommand: make(map[string]int),
		Steps:     make([]Step, 0, len(entries)),
	}
	for i, e := range entries {
		step := Step{
			N:            i + 1,
			Command:      e.Command,
			Text:         e.Text,
			Payload:      e.Payload,
			EventTS:      e.EventTS,
			DispatchedAt: e.DispatchedAt,
		}
		if i > 0 {
			step.GapMS = e.EventTS - entries[i-1].EventTS
		}
		report.ByCommand[e.Command]++
		report.Steps = append(report.Steps, step)
	}
	return report, nil
}

func renderCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, counts[name]))
	}
	return strings.Join(parts, ", ")
}
