package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Pulse lights up on events and fades over the following seconds.
type Pulse struct {
	dots      int
	lastEvent time.Time
}

func (p *Pulse) OnEvent(now time.Time) {
	p.dots = 5
	p.lastEvent = now
}

// Decay drops one dot for every two seconds without events.
func (p *Pulse) Decay(now time.Time) {
	if p.dots == 0 {
		return
	}
	left := 5 - int(now.Sub(p.lastEvent)/(2*time.Second))
	p.dots = max(0, min(5, left))
}

func (p Pulse) Render(theme Theme) string {
	var b strings.Builder
	for i := range 5 {
		if i < p.dots {
			b.WriteString(theme.PulseOn.Render("●"))
		} else {
			b.WriteString(theme.PulseOff.Render("○"))
		}
	}
	return b.String()
}

func renderHeader(health HealthState, sess SessionState, pulse Pulse, theme Theme, width int) string {
	innerWidth := width - 4

	clock := theme.Dim.Render(time.Now().Format("15:04:05"))
	title := " CURSOR VOICE"
	pad := max(1, innerWidth-lipgloss.Width(title)-lipgloss.Width(clock)-4)
	titleLine := title + strings.Repeat(" ", pad) + clock + " "

	daemon := theme.Listening.Render("UP")
	switch {
	case !health.Connected:
		daemon = theme.Error.Render("CONNECTING")
	case health.Status != "ok" && health.Status != "":
		daemon = theme.Warn.Render("DEGRADED")
	}

	recognizer := theme.Warn.Render("waiting")
	if health.RecognizerConnected {
		recognizer = theme.Listening.Render("connected")
	}

	state := theme.Dim.Render("unknown")
	if sess.Known {
		state = theme.Stopped.Render("STOPPED")
		if sess.Listening {
			state = theme.Listening.Render("LISTENING")
		}
	}

	statsLine := fmt.Sprintf(" Daemon: %s  Uptime: %s  Recognizer: %s",
		daemon,
		formatDuration(time.Duration(health.UptimeSeconds)*time.Second),
		recognizer,
	)
	sessionLine := fmt.Sprintf(" Session: %s %s  Edits: %d  Sent: %d  %s",
		state, theme.Dim.Render(shortID(sess.SessionID)), sess.Edits, sess.Sent, pulse.Render(theme))

	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, statsLine, sessionLine)
	return theme.Border.Width(innerWidth).Render(content)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
