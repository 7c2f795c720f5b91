package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete cursor-voice configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Voice   VoiceConfig   `yaml:"voice"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	API     APIConfig     `yaml:"api"`
	History HistoryConfig `yaml:"history"`
	Chat    ChatConfig    `yaml:"chat"`
	Events  EventsConfig  `yaml:"events"`

	// Path is the absolute path the configuration was loaded from.
	Path string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	PIDFile   string `yaml:"pid_file"`
}

// VoiceConfig controls recognition and dispatch.
type VoiceConfig struct {
	Language       string              `yaml:"language"`
	CommandTimeout time.Duration       `yaml:"command_timeout"`
	Phrases        map[string][]string `yaml:"phrases,omitempty"`
}

// BridgeConfig defines the recognizer bridge server.
type BridgeConfig struct {
	Listen string `yaml:"listen"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the admin bearer token (scope "*"). Prefer Tokens for scoped
	// access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// HistoryConfig defines the command log.
type HistoryConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// IsEnabled reports whether history is recorded. Unset means enabled.
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// Chat providers.
const (
	ChatEvents  = "events"
	ChatWebhook = "webhook"
	ChatOpenAI  = "openai"
)

// ChatConfig selects and configures the chat provider used by send.
type ChatConfig struct {
	Provider string        `yaml:"provider"`
	Webhook  WebhookConfig `yaml:"webhook"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
}

// WebhookConfig configures the webhook chat provider.
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

// OpenAIConfig configures the OpenAI chat provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// EventsConfig sizes the event hub.
type EventsConfig struct {
	Buffer int `yaml:"buffer"`
}

// ChecksumManifest is the on-disk .checksums format.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns a Config with every default populated.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "cursor-voice",
			LogLevel:  "info",
			LogFormat: "json",
			PIDFile:   "./cursor-voice.pid",
		},
		Voice: VoiceConfig{
			Language:       "en-US",
			CommandTimeout: 2000 * time.Millisecond,
		},
		Bridge: BridgeConfig{
			Listen: "localhost:7331",
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "localhost:7332",
		},
		History: HistoryConfig{
			Path:       "./data/history.db",
			MaxEntries: 1000,
		},
		Chat: ChatConfig{
			Provider: ChatEvents,
			Webhook:  WebhookConfig{Timeout: 10 * time.Second},
			OpenAI:   OpenAIConfig{Model: "gpt-4o-mini"},
		},
		Events: EventsConfig{
			Buffer: 256,
		},
	}
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
