package events

import "github.com/mattjoyce/cursor-voice/internal/dispatch"

// DispatchObserver mirrors dispatcher notifications onto a Hub.
type DispatchObserver struct {
	Hub *Hub
}

func (o DispatchObserver) Interim(ev dispatch.Event) {
	o.Hub.Publish(TypeTranscript, ev)
}

func (o DispatchObserver) CommandDetected(d dispatch.Detection) {
	o.Hub.Publish(TypeCommandDetected, d)
}
