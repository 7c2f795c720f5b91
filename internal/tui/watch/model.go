package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/cursor-voice/internal/events"
)

const eventLogSize = 200

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	health   HealthState
	session  SessionState
	eventLog []events.Event
	lastID   int64

	pulse     Pulse
	theme     Theme
	stream    viewport.Model
	showLog   bool
	hubEvents chan events.Event

	lastError string
}

// New creates a watch model for the daemon API at apiURL.
func New(apiURL, apiKey string) *Model {
	return &Model{
		apiURL:    strings.TrimRight(apiURL, "/"),
		apiKey:    apiKey,
		hubEvents: make(chan events.Event, 100),
		theme:     NewDefaultTheme(),
		stream:    viewport.Model{},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.apiKey, 0, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.apiURL) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "e":
			m.showLog = !m.showLog
			return m, nil
		}
		if m.showLog {
			var cmd tea.Cmd
			m.stream, cmd = m.stream.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.stream.Width = msg.Width - 8
		m.stream.Height = max(3, msg.Height/3)
		m.refreshStream()

	case tickMsg:
		m.pulse.Decay(time.Time(msg))
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case eventMsg:
		e := events.Event(msg)
		if e.ID > m.lastID {
			m.lastID = e.ID
		}
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > eventLogSize {
			m.eventLog = m.eventLog[:eventLogSize]
		}
		m.session.apply(e)
		m.pulse.OnEvent(time.Now())
		m.health.Connected = true
		m.lastError = ""
		m.refreshStream()
		return m, receiveNextEvent(m.hubEvents)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.RecognizerConnected = msg.RecognizerConnected
		m.health.Connected = true
		m.health.LastCheck = time.Now()

		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return fetchHealth(m.apiURL)
		})

	case sseDisconnectedMsg:
		m.health.Connected = false
		if msg.lastID > m.lastID {
			m.lastID = msg.lastID
		}
		m.lastError = "event stream disconnected, reconnecting..."
		// The pending receiveNextEvent keeps reading the same channel.
		last := m.lastID
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return reconnectMsg{lastID: last}
		})

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.apiKey, msg.lastID, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return fetchHealth(m.apiURL)
		})
	}

	return m, nil
}

func (m *Model) refreshStream() {
	lines := make([]string, 0, len(m.eventLog))
	for _, e := range m.eventLog {
		lines = append(lines, formatEvent(e, m.theme))
	}
	m.stream.SetContent(strings.Join(lines, "\n"))
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting to cursor-voice..."
	}

	parts := []string{
		renderHeader(m.health, m.session, m.pulse, m.theme, m.width),
		renderTranscript(m.session, m.theme, m.width),
	}
	if m.showLog {
		content := lipgloss.JoinVertical(lipgloss.Left, m.theme.Title.Render("EVENT STREAM"), m.stream.View())
		parts = append(parts, m.theme.Border.Width(m.width-4).Render(content))
	} else {
		parts = append(parts,
			renderCommands(m.session, m.theme, m.width),
			renderNotices(m.session, m.theme, m.width),
		)
	}

	if m.lastError != "" {
		parts = append(parts, m.theme.Error.Render(fmt.Sprintf(" ⚠ %s", m.lastError)))
	}
	parts = append(parts, m.theme.Dim.Render(" [q] Quit • [e] Toggle event stream • [↑/↓] Scroll"))

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
