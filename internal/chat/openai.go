package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/log"
)

// Reply is the payload of chat.reply.
type Reply struct {
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
	Model  string `json:"model"`
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

// OpenAI sends messages as chat completions and publishes each reply.
type OpenAI struct {
	client openai.Client
	cfg    OpenAIConfig
	hub    Hub
	logger *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig, hub Hub) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		hub:    hub,
		logger: log.WithComponent("chat-openai"),
	}, nil
}

// Focus is a no-op; replies surface as chat.reply events.
func (o *OpenAI) Focus(context.Context) error { return nil }

func (o *OpenAI) Send(ctx context.Context, text string) error {
	var messages []openai.ChatCompletionMessageParamUnion
	if o.cfg.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(o.cfg.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(text))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    o.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("openai chat: no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.logger.Info("assistant replied", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	o.hub.Publish(events.TypeChatReply, Reply{Prompt: text, Text: reply, Model: resp.Model})
	return nil
}
