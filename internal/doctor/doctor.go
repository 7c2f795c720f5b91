// Package doctor reviews a loaded cursor-voice configuration for mistakes
// that pass validation but break voice control at runtime.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/auth"
	"github.com/mattjoyce/cursor-voice/internal/command"
	"github.com/mattjoyce/cursor-voice/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

var knownScopes = map[string]bool{
	auth.ScopeAll:       true,
	auth.ScopeSessionRO: true,
	auth.ScopeSessionRW: true,
	auth.ScopeEditorRW:  true,
	auth.ScopeHistoryRO: true,
	"history:rw":        true,
	auth.ScopeEventsRO:  true,
	"events:rw":         true,
}

// Doctor validates a configuration.
type Doctor struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validatePhrases(r)
	d.validateTokenScopes(r)
	d.warnCommandTimeout(r)
	d.warnBridgeOrigin(r)
	d.warnExposedAPI(r)
	d.warnPlainWebhook(r)
	d.warnMissingEnvVars(r)
	d.warnLegacyAPIKey(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validatePhrases rejects extra phrases an earlier command would always
// claim first.
func (d *Doctor) validatePhrases(r *Result) {
	if len(d.cfg.Voice.Phrases) == 0 {
		return
	}
	noop := func(context.Context, command.Match) {}
	reg, err := command.NewBuiltinRegistry(command.Bindings{
		Start: noop, Stop: noop, Message: noop, Send: noop,
	}, d.cfg.Voice.Phrases)
	if err != nil {
		d.addError(r, "phrases", "voice.phrases", err.Error())
		return
	}

	names := make([]string, 0, len(d.cfg.Voice.Phrases))
	for name := range d.cfg.Voice.Phrases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == command.NameMessage {
			// Entries are assistant names, not whole phrases.
			continue
		}
		for i, phrase := range d.cfg.Voice.Phrases[name] {
			m, ok := reg.Match(command.Normalize(phrase))
			if ok && m.Name() != name {
				d.addError(r, "phrases", fmt.Sprintf("voice.phrases.%s[%d]", name, i),
					fmt.Sprintf("phrase %q is claimed by the earlier %q command and would never run %q", phrase, m.Name(), name))
			}
		}
	}
}

func (d *Doctor) validateTokenScopes(r *Result) {
	for i, token := range d.cfg.API.Auth.Tokens {
		for j, scope := range token.Scopes {
			if !knownScopes[scope] {
				d.addError(r, "token_scopes", fmt.Sprintf("api.auth.tokens[%d].scopes[%d]", i, j),
					fmt.Sprintf("unknown scope %q (expected one of: %s)", scope, scopeList()))
			}
		}
	}
}

func scopeList() string {
	out := make([]string, 0, len(knownScopes))
	for s := range knownScopes {
		out = append(out, s)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func (d *Doctor) warnCommandTimeout(r *Result) {
	t := d.cfg.Voice.CommandTimeout
	switch {
	case t < 500*time.Millisecond:
		d.addWarning(r, "voice", "voice.command_timeout",
			fmt.Sprintf("command_timeout %s is short; a recognizer repeating a final result may dispatch twice", t))
	case t > 10*time.Second:
		d.addWarning(r, "voice", "voice.command_timeout",
			fmt.Sprintf("command_timeout %s is long; commands spoken in quick succession will be ignored", t))
	}
}

// warnBridgeOrigin flags bridge addresses a browser will not grant the
// microphone to. Speech capture needs a secure context, and plain http is
// only secure on loopback.
func (d *Doctor) warnBridgeOrigin(r *Result) {
	if !isLoopback(d.cfg.Bridge.Listen) {
		d.addWarning(r, "bridge", "bridge.listen",
			fmt.Sprintf("%s is not a loopback address; browsers deny microphone access to non-localhost http pages", d.cfg.Bridge.Listen))
	}
}

func (d *Doctor) warnExposedAPI(r *Result) {
	if d.cfg.API.Enabled && !isLoopback(d.cfg.API.Listen) {
		d.addWarning(r, "api", "api.listen",
			fmt.Sprintf("control API listens on %s; anyone with a token on that network can drive the editor", d.cfg.API.Listen))
	}
}

func (d *Doctor) warnPlainWebhook(r *Result) {
	if d.cfg.Chat.Provider != config.ChatWebhook {
		return
	}
	u, err := url.Parse(d.cfg.Chat.Webhook.URL)
	if err != nil || u.Scheme != "http" || isLoopback(u.Host) {
		return
	}
	d.addWarning(r, "chat", "chat.webhook.url", "webhook uses plain http to a remote host; dictated text is sent unencrypted")
	if d.cfg.Chat.Webhook.Secret == "" {
		d.addWarning(r, "chat", "chat.webhook.secret", "webhook has no secret; requests are unsigned")
	}
}

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// warnMissingEnvVars reports ${VAR} references left in string settings.
func (d *Doctor) warnMissingEnvVars(r *Result) {
	fields := map[string]string{
		"voice.language":            d.cfg.Voice.Language,
		"chat.webhook.url":          d.cfg.Chat.Webhook.URL,
		"chat.webhook.secret":       d.cfg.Chat.Webhook.Secret,
		"chat.openai.api_key":       d.cfg.Chat.OpenAI.APIKey,
		"chat.openai.base_url":      d.cfg.Chat.OpenAI.BaseURL,
		"chat.openai.model":         d.cfg.Chat.OpenAI.Model,
		"chat.openai.system_prompt": d.cfg.Chat.OpenAI.SystemPrompt,
		"history.path":              d.cfg.History.Path,
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		for _, m := range envVarRe.FindAllStringSubmatch(fields[field], -1) {
			if os.Getenv(m[1]) == "" {
				d.addWarning(r, "env_vars", field, fmt.Sprintf("environment variable ${%s} not set", m[1]))
			}
		}
	}
}

func (d *Doctor) warnLegacyAPIKey(r *Result) {
	if d.cfg.API.Enabled && d.cfg.API.Auth.APIKey != "" && len(d.cfg.API.Auth.Tokens) == 0 {
		d.addWarning(r, "api", "api.auth.api_key",
			"api_key grants full access; give the editor extension a token scoped to session:rw, editor:rw and events:ro")
	}
}

func isLoopback(hostport string) bool {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString("Configuration valid.\n")
		return b.String()
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}
	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
