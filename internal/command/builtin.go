package command

import "fmt"

// Built-in command names.
const (
	NameStart   = "start"
	NameStop    = "stop"
	NameMessage = "message"
	NameSend    = "send"
)

var (
	startPhrases     = []string{"start listening", "start voice commands"}
	stopPhrases      = []string{"stop listening", "stop voice commands"}
	sendPhrases      = []string{"send to cursor", "send message", "send it"}
	greetingPrefixes = []string{"hey", "yo", "hi", "hello"}
	assistantNames   = []string{"cursor", "assistant"}
)

// Bindings supplies the action for each built-in command.
type Bindings struct {
	Start   Action
	Stop    Action
	Message Action
	Send    Action
}

// Builtins returns the canonical command table in priority order. extra adds
// phrases to a built-in by name; for NameMessage the entries are additional
// assistant names accepted after the greeting.
func Builtins(b Bindings, extra map[string][]string) []CommandSpec {
	return []CommandSpec{
		{
			Name:        NameStart,
			Description: "Start listening for voice commands",
			Matcher:     Phrases(append(clone(startPhrases), extra[NameStart]...)...),
			Action:      b.Start,
		},
		{
			Name:        NameStop,
			Description: "Stop listening for voice commands",
			Matcher:     Phrases(append(clone(stopPhrases), extra[NameStop]...)...),
			Action:      b.Stop,
		},
		{
			Name:        NameMessage,
			Description: "Stage a dictated message for the assistant",
			Matcher:     Greeting(greetingPrefixes, append(clone(assistantNames), extra[NameMessage]...)),
			Action:      b.Message,
		},
		{
			Name:        NameSend,
			Description: "Send the staged or selected text to the assistant",
			Matcher:     Phrases(append(clone(sendPhrases), extra[NameSend]...)...),
			Action:      b.Send,
		},
	}
}

// NewBuiltinRegistry registers the built-in table into a fresh registry.
func NewBuiltinRegistry(b Bindings, extra map[string][]string) (*Registry, error) {
	for name := range extra {
		switch name {
		case NameStart, NameStop, NameMessage, NameSend:
		default:
			return nil, fmt.Errorf("%w: unknown built-in %q", ErrInvalidSpec, name)
		}
	}

	r := NewRegistry()
	for _, spec := range Builtins(b, extra) {
		if err := r.Register(spec); err != nil {
			return nil, fmt.Errorf("register %s: %w", spec.Name, err)
		}
	}
	return r, nil
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
