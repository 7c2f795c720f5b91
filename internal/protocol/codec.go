package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EncodeControl serializes a control frame to w.
func EncodeControl(w io.Writer, c Control) error {
	if c.Command != CommandStart && c.Command != CommandStop {
		return fmt.Errorf("unsupported control command: %q", c.Command)
	}
	if err := json.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode control: %w", err)
	}
	return nil
}

// DecodeSourceMessage parses and validates one recognizer frame.
func DecodeSourceMessage(data []byte) (*SourceMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	var msg SourceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("message is not valid JSON: %w", err)
	}

	switch msg.Command {
	case CommandReady:
	case CommandTranscript:
		if strings.TrimSpace(msg.Text) == "" && msg.IsFinal {
			return nil, fmt.Errorf("final transcript has no text")
		}
		if msg.Timestamp < 0 {
			return nil, fmt.Errorf("invalid timestamp: %d", msg.Timestamp)
		}
	case CommandError:
		if strings.TrimSpace(msg.Error) == "" {
			return nil, fmt.Errorf("error message has no reason")
		}
	case "":
		return nil, fmt.Errorf("message missing required field: command")
	default:
		return nil, fmt.Errorf("unknown command: %q", msg.Command)
	}

	return &msg, nil
}
