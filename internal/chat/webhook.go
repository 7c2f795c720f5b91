package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mattjoyce/cursor-voice/internal/log"
)

// Webhook delivers messages to an HTTP endpoint.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
	logger *slog.Logger
}

func NewWebhook(url, secret string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
		logger: log.WithComponent("chat-webhook"),
	}
}

// Focus is a no-op: a webhook has no panel to reveal.
func (w *Webhook) Focus(context.Context) error { return nil }

func (w *Webhook) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(Message{Text: text, SentAt: w.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, w.secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	w.logger.Debug("message delivered", "status", resp.StatusCode, "bytes", len(body))
	return nil
}
