package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/cursor-voice/internal/events"
)

func TestSinkPublishesLevels(t *testing.T) {
	hub := events.NewHub(10)
	s := NewSink(hub)

	s.Info("Voice commands activated")
	s.Warn("No active editor")
	s.Error("boom")

	evs := hub.SnapshotSince(0)
	require.Len(t, evs, 3)

	want := []Message{
		{Level: LevelInfo, Message: "Voice commands activated"},
		{Level: LevelWarn, Message: "No active editor"},
		{Level: LevelError, Message: "boom"},
	}
	for i, ev := range evs {
		assert.Equal(t, events.TypeNotify, ev.Type)
		var got Message
		require.NoError(t, json.Unmarshal(ev.Data, &got))
		assert.Equal(t, want[i], got)
	}
}

func TestSinkWithoutPublisher(t *testing.T) {
	s := NewSink(nil)
	assert.NotPanics(t, func() { s.Info("logged only") })
}
