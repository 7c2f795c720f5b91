package command

import (
	"fmt"
	"strings"
)

// Registry is an ordered list of command specs. It is built once at startup
// and only read afterwards.
type Registry struct {
	specs []*CommandSpec
	names map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends spec to the registry. Registration order is match priority.
func (r *Registry) Register(spec CommandSpec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if spec.Matcher == nil {
		return fmt.Errorf("%w: command %q has no matcher", ErrInvalidSpec, name)
	}
	if spec.Action == nil {
		return fmt.Errorf("%w: command %q has no action", ErrInvalidSpec, name)
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, name)
	}

	spec.Name = name
	r.names[name] = struct{}{}
	r.specs = append(r.specs, &spec)
	return nil
}

// Match returns the first spec whose matcher accepts the normalized text.
func (r *Registry) Match(text string) (Match, bool) {
	normalized := Normalize(text)
	if normalized == "" {
		return Match{}, false
	}
	for _, spec := range r.specs {
		payload, ok := spec.Matcher.Match(normalized)
		if !ok {
			continue
		}
		return Match{
			Spec:    spec,
			Text:    strings.ToLower(normalized),
			Payload: payload,
		}, true
	}
	return Match{}, false
}

// Len returns the number of registered specs.
func (r *Registry) Len() int { return len(r.specs) }

// Describe lists registered command names and descriptions in priority order.
func (r *Registry) Describe() []Description {
	out := make([]Description, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, Description{Name: spec.Name, Description: spec.Description})
	}
	return out
}

// Description is the read-only view of a spec exposed to the API.
type Description struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
