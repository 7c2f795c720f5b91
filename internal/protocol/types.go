package protocol

// Control commands sent from the daemon to the recognizer.
const (
	CommandStart = "start"
	CommandStop  = "stop"
)

// Source commands sent from the recognizer to the daemon.
const (
	CommandReady      = "ready"
	CommandTranscript = "transcript"
	CommandError      = "error"
)

// Recognizer error reasons. The values mirror the Web Speech API error codes.
const (
	ReasonNotSupported         = "not-supported"
	ReasonNotAllowed           = "not-allowed"
	ReasonServiceNotAllowed    = "service-not-allowed"
	ReasonNoSpeech             = "no-speech"
	ReasonAborted              = "aborted"
	ReasonAudioCapture         = "audio-capture"
	ReasonNetwork              = "network"
	ReasonLanguageNotSupported = "language-not-supported"
)

// Control is a frame sent to the recognizer.
type Control struct {
	Command  string `json:"command"` // start | stop
	Language string `json:"language,omitempty"`
}

// SourceMessage is a frame received from the recognizer.
type SourceMessage struct {
	Command   string `json:"command"` // ready | transcript | error
	Text      string `json:"text,omitempty"`
	IsFinal   bool   `json:"is_final,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	// Engine names the recognition implementation on ready (e.g. "webkitSpeechRecognition").
	Engine string `json:"engine,omitempty"`
}
