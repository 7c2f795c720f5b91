package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mattjoyce/cursor-voice/internal/chat"
	"github.com/mattjoyce/cursor-voice/internal/events"
)

const maxReplyBody = 1 << 20

// ChatReplyRequest is the body of POST /hooks/chat-reply.
type ChatReplyRequest struct {
	Prompt string `json:"prompt,omitempty"`
	Text   string `json:"text"`
	Model  string `json:"model,omitempty"`
}

// handleChatReply accepts the assistant's answer from a webhook chat backend.
// The body must carry an X-Signature-256 HMAC made with the webhook secret.
func (s *Server) handleChatReply(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxReplyBody+1))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if len(body) > maxReplyBody {
		s.writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	signature := r.Header.Get(chat.SignatureHeader)
	if signature == "" {
		s.logger.Warn("chat reply signature missing", "header", chat.SignatureHeader)
		s.writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := chat.VerifySignature(body, signature, s.config.ChatReplySecret); err != nil {
		s.logger.Warn("chat reply signature verification failed", "error", err)
		s.writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req ChatReplyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	ev := s.deps.Events.Publish(events.TypeChatReply, chat.Reply{Prompt: req.Prompt, Text: req.Text, Model: req.Model})
	s.logger.Info("chat reply received", "event_id", ev.ID, "chars", len(req.Text))
	w.WriteHeader(http.StatusAccepted)
}
