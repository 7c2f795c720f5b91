package api

import (
	"maps"
	"net/http"

	"github.com/mattjoyce/cursor-voice/internal/command"
)

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the control API. The
// voice command catalogue is attached under x-voice-commands.
func buildOpenAPIDoc(commands []command.Description) map[string]any {
	secured := []any{map[string]any{"BearerAuth": []string{}}}
	op := func(id, summary string, responses map[string]any) map[string]any {
		return map[string]any{
			"operationId": id,
			"summary":     summary,
			"security":    secured,
			"responses":   responses,
		}
	}
	status := map[string]any{
		"200": map[string]any{"description": "Session status"},
		"401": map[string]any{"description": "Unauthorized"},
		"403": map[string]any{"description": "Insufficient scope"},
	}

	if commands == nil {
		commands = []command.Description{}
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "cursor-voice",
			"version": "1.0",
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"operationId": "healthz",
					"summary":     "Liveness and recognizer attachment",
					"responses":   map[string]any{"200": map[string]any{"description": "OK"}},
				},
			},
			"/v1/session/start": map[string]any{
				"post": op("session_start", "Start listening", merge(status, map[string]any{
					"409": map[string]any{"description": "Speech recognition unsupported"},
					"502": map[string]any{"description": "Recognizer activation failed"},
				})),
			},
			"/v1/session/stop": map[string]any{"post": op("session_stop", "Stop listening", status)},
			"/v1/session":      map[string]any{"get": op("session_status", "Session status", status)},
			"/v1/editor/context": map[string]any{
				"get":    op("editor_context_get", "Current editing context", map[string]any{"200": map[string]any{"description": "Context"}, "404": map[string]any{"description": "No active context"}}),
				"put":    op("editor_context_put", "Replace the editing context", map[string]any{"204": map[string]any{"description": "Stored"}, "400": map[string]any{"description": "Invalid context"}}),
				"delete": op("editor_context_delete", "Clear the editing context", map[string]any{"204": map[string]any{"description": "Cleared"}}),
			},
			"/v1/history": map[string]any{"get": op("history_list", "Recent dispatched commands", map[string]any{"200": map[string]any{"description": "Entries"}})},
			"/events":     map[string]any{"get": op("events_stream", "Server-sent event stream, optionally narrowed with ?types=", map[string]any{"200": map[string]any{"description": "text/event-stream"}})},
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
		"x-voice-commands": commands,
	}
}

func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc := buildOpenAPIDoc(s.deps.Commands)
	if s.config.ChatReplySecret != "" {
		doc["paths"].(map[string]any)["/hooks/chat-reply"] = map[string]any{
			"post": map[string]any{
				"operationId": "chat_reply",
				"summary":     "Deliver an assistant reply (HMAC-signed with X-Signature-256)",
				"responses": map[string]any{
					"202": map[string]any{"description": "Accepted"},
					"403": map[string]any{"description": "Bad or missing signature"},
				},
			},
		}
	}
	respondJSON(w, http.StatusOK, doc)
}
