package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Match) {}

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewBuiltinRegistry(Bindings{Start: noop, Stop: noop, Message: noop, Send: noop}, nil)
	require.NoError(t, err)
	return r
}

func TestRegisterRejectsInvalidSpecs(t *testing.T) {
	r := NewRegistry()

	err := r.Register(CommandSpec{Matcher: Phrases("x"), Action: noop})
	assert.True(t, errors.Is(err, ErrInvalidSpec))

	err = r.Register(CommandSpec{Name: "x", Action: noop})
	assert.True(t, errors.Is(err, ErrInvalidSpec))

	err = r.Register(CommandSpec{Name: "x", Matcher: Phrases("x")})
	assert.True(t, errors.Is(err, ErrInvalidSpec))

	require.NoError(t, r.Register(CommandSpec{Name: "x", Matcher: Phrases("x"), Action: noop}))
	err = r.Register(CommandSpec{Name: "x", Matcher: Phrases("y"), Action: noop})
	assert.True(t, errors.Is(err, ErrDuplicateCommand))
	assert.Equal(t, 1, r.Len())
}

func TestMatchBuiltins(t *testing.T) {
	r := builtinRegistry(t)

	tests := []struct {
		in          string
		wantName    string
		wantPayload string
	}{
		{"start listening", NameStart, ""},
		{"  Start Voice Commands  ", NameStart, ""},
		{"STOP LISTENING", NameStop, ""},
		{"stop voice commands.", NameStop, ""},
		{"Hey Cursor fix this bug", NameMessage, "fix this bug"},
		{"hey cursor, Fix This Bug", NameMessage, "Fix This Bug"},
		{"yo assistant   rename the   variable", NameMessage, "rename the variable"},
		{"HELLO ASSISTANT", NameMessage, ""},
		{"hi cursor.", NameMessage, ""},
		{"send to cursor", NameSend, ""},
		{"Send message", NameSend, ""},
		{"send it!", NameSend, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, ok := r.Match(tt.in)
			require.True(t, ok, "expected a match for %q", tt.in)
			assert.Equal(t, tt.wantName, m.Name())
			assert.Equal(t, tt.wantPayload, m.Payload)
		})
	}
}

func TestMatchIsWholeString(t *testing.T) {
	r := builtinRegistry(t)

	for _, in := range []string{
		"please stop listening",
		"stop listening now",
		"send it to me",
		"hey cursors do it",
		"hello there",
		"cursor fix this",
		"",
		"   ",
	} {
		_, ok := r.Match(in)
		assert.False(t, ok, "did not expect %q to match", in)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	r := builtinRegistry(t)

	first, ok := r.Match("Hey Cursor fix this bug")
	require.True(t, ok)
	for range 50 {
		again, ok := r.Match("Hey Cursor fix this bug")
		require.True(t, ok)
		assert.Same(t, first.Spec, again.Spec)
		assert.Equal(t, first, again)
	}
}

func TestRegistrationOrderDeterminesPrecedence(t *testing.T) {
	catchAll := MatcherFunc(func(text string) (string, bool) { return text, true })

	r := NewRegistry()
	require.NoError(t, r.Register(CommandSpec{Name: "first", Matcher: Phrases("stop listening"), Action: noop}))
	require.NoError(t, r.Register(CommandSpec{Name: "second", Matcher: catchAll, Action: noop}))

	m, ok := r.Match("stop listening")
	require.True(t, ok)
	assert.Equal(t, "first", m.Name())

	m, ok = r.Match("anything else")
	require.True(t, ok)
	assert.Equal(t, "second", m.Name())

	reversed := NewRegistry()
	require.NoError(t, reversed.Register(CommandSpec{Name: "second", Matcher: catchAll, Action: noop}))
	require.NoError(t, reversed.Register(CommandSpec{Name: "first", Matcher: Phrases("stop listening"), Action: noop}))

	m, ok = reversed.Match("stop listening")
	require.True(t, ok)
	assert.Equal(t, "second", m.Name())
}

func TestExtraPhrases(t *testing.T) {
	r, err := NewBuiltinRegistry(Bindings{Start: noop, Stop: noop, Message: noop, Send: noop}, map[string][]string{
		NameStop:    {"pause listening"},
		NameMessage: {"claude"},
	})
	require.NoError(t, err)

	m, ok := r.Match("Pause listening")
	require.True(t, ok)
	assert.Equal(t, NameStop, m.Name())

	m, ok = r.Match("hey claude write tests")
	require.True(t, ok)
	assert.Equal(t, NameMessage, m.Name())
	assert.Equal(t, "write tests", m.Payload)

	_, err = NewBuiltinRegistry(Bindings{Start: noop, Stop: noop, Message: noop, Send: noop}, map[string][]string{
		"dance": {"do a dance"},
	})
	assert.True(t, errors.Is(err, ErrInvalidSpec))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Send it", Normalize("  Send \t it!! "))
	assert.Equal(t, "", Normalize(" ... "))
	assert.Equal(t, "hey cursor, fix", Normalize("hey cursor, fix."))
	assert.Equal(t, "send message", Normalize("send message;"))
	assert.Equal(t, "stop listening", Normalize("stop listening:"))
}

func TestDescribe(t *testing.T) {
	r := builtinRegistry(t)
	desc := r.Describe()
	require.Len(t, desc, 4)
	assert.Equal(t, []string{NameStart, NameStop, NameMessage, NameSend},
		[]string{desc[0].Name, desc[1].Name, desc[2].Name, desc[3].Name})
}
