package watch

import (
	"encoding/json"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/dispatch"
	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/notify"
	"github.com/mattjoyce/cursor-voice/internal/session"
)

const maxRecent = 10

// HealthState tracks daemon health from /healthz polling.
type HealthState struct {
	Status              string
	UptimeSeconds       int64
	RecognizerConnected bool
	Connected           bool
	LastCheck           time.Time
}

// SessionState is what the monitor knows about the voice session, rebuilt
// from the event stream.
type SessionState struct {
	SessionID string
	Listening bool
	Known     bool

	Interim   string
	InterimAt time.Time

	Commands []dispatch.Detection
	Notices  []notify.Message
	Edits    int
	Sent     int
}

// apply folds one event into the state. Unknown types are ignored.
func (s *SessionState) apply(e events.Event) {
	switch e.Type {
	case events.TypeSessionState:
		var st session.Status
		if json.Unmarshal(e.Data, &st) != nil {
			return
		}
		s.Known = true
		s.Listening = st.Listening
		s.SessionID = st.SessionID
		if !st.Listening {
			s.Interim = ""
		}

	case events.TypeTranscript:
		var ev dispatch.Event
		if json.Unmarshal(e.Data, &ev) != nil {
			return
		}
		s.Interim = ev.Text
		s.InterimAt = e.At

	case events.TypeCommandDetected:
		var d dispatch.Detection
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		s.Interim = ""
		s.Commands = prepend(s.Commands, d)

	case events.TypeNotify:
		var m notify.Message
		if json.Unmarshal(e.Data, &m) != nil {
			return
		}
		s.Notices = prepend(s.Notices, m)

	case events.TypeEditorEdit:
		s.Edits++

	case events.TypeChatSend:
		s.Sent++
	}
}

func prepend[T any](list []T, v T) []T {
	list = append([]T{v}, list...)
	if len(list) > maxRecent {
		list = list[:maxRecent]
	}
	return list
}
