package command

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateCommand is returned when a spec name is registered twice.
	ErrDuplicateCommand = errors.New("command already registered")
	// ErrInvalidSpec is returned for specs missing a name, matcher or action.
	ErrInvalidSpec = errors.New("invalid command spec")
)

// Action is invoked with the match that selected its spec. Actions report their
// own failures; nothing is returned to the dispatcher.
type Action func(ctx context.Context, m Match)

// Matcher decides whether a normalized transcript selects a command.
// Implementations must be pure: the same text always yields the same result.
type Matcher interface {
	Match(text string) (payload string, ok bool)
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(text string) (string, bool)

func (f MatcherFunc) Match(text string) (string, bool) { return f(text) }

// CommandSpec is one entry of the registry.
type CommandSpec struct {
	Name        string
	Description string
	Matcher     Matcher
	Action      Action
}

// Match is the result of a successful registry lookup.
type Match struct {
	Spec *CommandSpec
	// Text is the normalized, lower-cased transcript.
	Text string
	// Payload is the free-text remainder captured by the matcher, in its
	// original casing. Empty for exact-phrase commands.
	Payload string
}

// Name returns the matched spec name, or "" for a zero Match.
func (m Match) Name() string {
	if m.Spec == nil {
		return ""
	}
	return m.Spec.Name
}
