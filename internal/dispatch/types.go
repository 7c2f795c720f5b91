package dispatch

import (
	"time"

	"github.com/mattjoyce/cursor-voice/internal/command"
)

// DefaultCommandTimeout is the minimum gap between two honored dispatches.
const DefaultCommandTimeout = 2000 * time.Millisecond

// Event is one transcript update from the speech recognizer.
type Event struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	// Timestamp is a monotonic millisecond clock supplied by the source.
	Timestamp int64 `json:"timestamp"`
}

// State is the mutable dispatch record owned by the session controller.
type State struct {
	Listening    bool
	LastDispatch int64
	dispatched   bool
}

// Dispatched reports whether any command has been honored yet.
func (s *State) Dispatched() bool { return s.dispatched }

// Detection is emitted after a matched command's action has run.
type Detection struct {
	Command   string `json:"command"`
	Text      string `json:"text"`
	Payload   string `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Observer receives dispatcher notifications. Implementations must not block for long;
// they run inline on the dispatch path.
type Observer interface {
	Interim(ev Event)
	CommandDetected(d Detection)
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) Interim(ev Event) {
	for _, obs := range o {
		obs.Interim(ev)
	}
}

func (o Observers) CommandDetected(d Detection) {
	for _, obs := range o {
		obs.CommandDetected(d)
	}
}

// Matcher is the registry lookup used by the dispatcher.
type Matcher interface {
	Match(text string) (command.Match, bool)
}
