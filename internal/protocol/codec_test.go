package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeControl(t *testing.T) {
	tests := []struct {
		name    string
		ctrl    Control
		wantErr bool
		want    []string
	}{
		{
			name: "start with language",
			ctrl: Control{Command: CommandStart, Language: "en-US"},
			want: []string{`"command":"start"`, `"language":"en-US"`},
		},
		{
			name: "stop omits language",
			ctrl: Control{Command: CommandStop},
			want: []string{`"command":"stop"`},
		},
		{
			name:    "unknown command",
			ctrl:    Control{Command: "pause"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := EncodeControl(&buf, tt.ctrl)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeControl() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output %q missing %s", buf.String(), w)
				}
			}
			if tt.ctrl.Command == CommandStop && strings.Contains(buf.String(), "language") {
				t.Errorf("stop frame should not carry language: %s", buf.String())
			}
		})
	}
}

func TestDecodeSourceMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		checkFn func(t *testing.T, msg *SourceMessage)
	}{
		{
			name:  "ready",
			input: `{"command":"ready","engine":"webkitSpeechRecognition"}`,
			checkFn: func(t *testing.T, msg *SourceMessage) {
				if msg.Engine != "webkitSpeechRecognition" {
					t.Errorf("engine = %q", msg.Engine)
				}
			},
		},
		{
			name:  "final transcript",
			input: `{"command":"transcript","text":"send it","is_final":true,"timestamp":1200}`,
			checkFn: func(t *testing.T, msg *SourceMessage) {
				if msg.Text != "send it" || !msg.IsFinal || msg.Timestamp != 1200 {
					t.Errorf("unexpected message: %+v", msg)
				}
			},
		},
		{
			name:  "interim transcript may be empty",
			input: `{"command":"transcript","text":"","is_final":false}`,
		},
		{
			name:    "final transcript without text",
			input:   `{"command":"transcript","text":"  ","is_final":true}`,
			wantErr: true,
		},
		{
			name:    "negative timestamp",
			input:   `{"command":"transcript","text":"x","timestamp":-1}`,
			wantErr: true,
		},
		{
			name:  "error with reason",
			input: `{"command":"error","error":"not-allowed"}`,
			checkFn: func(t *testing.T, msg *SourceMessage) {
				if msg.Error != ReasonNotAllowed {
					t.Errorf("error = %q", msg.Error)
				}
			},
		},
		{
			name:    "error without reason",
			input:   `{"command":"error"}`,
			wantErr: true,
		},
		{
			name:    "missing command",
			input:   `{"text":"hello"}`,
			wantErr: true,
		},
		{
			name:    "unknown command",
			input:   `{"command":"dance"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			input:   `{not json`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeSourceMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeSourceMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.checkFn != nil {
				tt.checkFn(t, msg)
			}
		})
	}
}
