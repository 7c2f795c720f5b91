package config

import (
	"fmt"

	"github.com/mattjoyce/cursor-voice/internal/command"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validate performs semantic validation on a defaulted configuration.
func validate(cfg *Config) error {
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Voice.CommandTimeout < 0 {
		return fmt.Errorf("voice.command_timeout must not be negative")
	}
	for name, phrases := range cfg.Voice.Phrases {
		switch name {
		case command.NameStart, command.NameStop, command.NameMessage, command.NameSend:
		default:
			return fmt.Errorf("voice.phrases: unknown command %q", name)
		}
		for i, p := range phrases {
			if command.Normalize(p) == "" {
				return fmt.Errorf("voice.phrases.%s[%d] is empty", name, i)
			}
		}
	}

	if cfg.Bridge.Listen == "" {
		return fmt.Errorf("bridge.listen is required")
	}

	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			return fmt.Errorf("api.listen is required when the API is enabled")
		}
		if err := unresolved("api.auth.api_key", cfg.API.Auth.APIKey); err != nil {
			return err
		}
		if cfg.API.Auth.APIKey == "" && len(cfg.API.Auth.Tokens) == 0 {
			return fmt.Errorf("api.auth: api_key or tokens are required when the API is enabled")
		}
		for i, tok := range cfg.API.Auth.Tokens {
			if tok.Token == "" {
				return fmt.Errorf("api.auth.tokens[%d].token is required", i)
			}
			if err := unresolved(fmt.Sprintf("api.auth.tokens[%d].token", i), tok.Token); err != nil {
				return err
			}
			if len(tok.Scopes) == 0 {
				return fmt.Errorf("api.auth.tokens[%d].scopes must be non-empty", i)
			}
		}
	}

	if cfg.History.IsEnabled() && cfg.History.Path == "" {
		return fmt.Errorf("history.path is required")
	}
	if cfg.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}

	switch cfg.Chat.Provider {
	case ChatEvents:
	case ChatWebhook:
		if !isHTTPURL(cfg.Chat.Webhook.URL) {
			return fmt.Errorf("chat.webhook.url must be an http(s) URL")
		}
		if err := unresolved("chat.webhook.secret", cfg.Chat.Webhook.Secret); err != nil {
			return err
		}
	case ChatOpenAI:
		if cfg.Chat.OpenAI.APIKey == "" {
			return fmt.Errorf("chat.openai.api_key is required")
		}
		if err := unresolved("chat.openai.api_key", cfg.Chat.OpenAI.APIKey); err != nil {
			return err
		}
	default:
		return fmt.Errorf("chat.provider must be one of: %s, %s, %s (got %q)", ChatEvents, ChatWebhook, ChatOpenAI, cfg.Chat.Provider)
	}

	if cfg.Events.Buffer < 0 {
		return fmt.Errorf("events.buffer must not be negative")
	}
	return nil
}
