package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/notify"
)

func renderTranscript(sess SessionState, theme Theme, width int) string {
	line := theme.Dim.Render("  (silence)")
	if sess.Interim != "" {
		line = "  " + theme.Interim.Render(truncate(sess.Interim, width-10))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, theme.Title.Render("HEARING"), line)
	return theme.Border.Width(width - 4).Render(content)
}

func renderCommands(sess SessionState, theme Theme, width int) string {
	lines := []string{theme.Title.Render("COMMANDS")}
	if len(sess.Commands) == 0 {
		lines = append(lines, theme.Dim.Render("  No commands yet"))
	}
	for _, d := range sess.Commands {
		row := fmt.Sprintf("  %s %s", theme.Highlight.Render(fmt.Sprintf("%-8s", d.Command)), d.Text)
		if d.Payload != "" {
			row += theme.Dim.Render("  → " + truncate(d.Payload, width/2))
		}
		lines = append(lines, row)
	}
	return theme.Border.Width(width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderNotices(sess SessionState, theme Theme, width int) string {
	lines := []string{theme.Title.Render("NOTIFICATIONS")}
	if len(sess.Notices) == 0 {
		lines = append(lines, theme.Dim.Render("  Nothing to report"))
	}
	for _, n := range sess.Notices {
		style := theme.Dim
		switch n.Level {
		case notify.LevelWarn:
			style = theme.Warn
		case notify.LevelError:
			style = theme.Error
		}
		lines = append(lines, "  "+style.Render(fmt.Sprintf("%-7s", n.Level))+" "+truncate(n.Message, width-16))
	}
	return theme.Border.Width(width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	typeStyle := theme.Dim
	switch {
	case e.Type == events.TypeCommandDetected:
		typeStyle = theme.Highlight
	case e.Type == events.TypeSessionState:
		typeStyle = theme.Listening
	case strings.HasPrefix(e.Type, "chat."), strings.HasPrefix(e.Type, "editor."):
		typeStyle = theme.Interim
	}

	return fmt.Sprintf("%s %s %s", ts, typeStyle.Render(fmt.Sprintf("%-18s", e.Type)), truncate(string(e.Data), 60))
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
