package command

import (
	"regexp"
	"strings"
)

const trailingPunctuation = ".!?,;:"

// Normalize trims text, collapses internal whitespace and strips trailing
// sentence punctuation. Casing is preserved; matchers compare case-insensitively.
func Normalize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(strings.TrimRight(collapsed, trailingPunctuation))
}

type phraseMatcher struct {
	phrases map[string]struct{}
}

// Phrases matches when the whole normalized text equals one of the phrases.
func Phrases(phrases ...string) Matcher {
	m := &phraseMatcher{phrases: make(map[string]struct{}, len(phrases))}
	for _, p := range phrases {
		p = strings.ToLower(Normalize(p))
		if p == "" {
			continue
		}
		m.phrases[p] = struct{}{}
	}
	return m
}

func (m *phraseMatcher) Match(text string) (string, bool) {
	_, ok := m.phrases[strings.ToLower(text)]
	return "", ok
}

type greetingMatcher struct {
	re *regexp.Regexp
}

// Greeting matches "<prefix> <name>" optionally followed by free text, which
// becomes the payload. "Hey Cursor, fix this bug" yields "fix this bug".
func Greeting(prefixes, names []string) Matcher {
	return &greetingMatcher{re: regexp.MustCompile(
		`(?i)^(?:` + alternation(prefixes) + `)[\s,]+(?:` + alternation(names) + `)(?:[\s,:;.!?-]+(.*))?$`,
	)}
}

func (m *greetingMatcher) Match(text string) (string, bool) {
	sub := m.re.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	return strings.TrimSpace(sub[1]), true
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		parts := strings.Fields(w)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		quoted = append(quoted, strings.Join(parts, `\s+`))
	}
	return strings.Join(quoted, "|")
}
