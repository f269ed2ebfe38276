package ingest

import "jarvis/app/client/pipeline"

type Kind string

const (
	KindVoice Kind = "voice"
	KindAudio Kind = "audio"
)

// defaultExtension is used when the transport did not declare a MIME type.
func (k Kind) defaultExtension() string {
	if k == KindAudio {
		return "mp3"
	}

	return "ogg"
}

type User struct {
	ID       int64
	Username string
}

// Audio is one inbound audio message.
type Audio struct {
	Kind Kind
	// FileID is the transport's content-addressable identifier, used for
	// duplicate-delivery detection.
	FileID   string
	Data     []byte
	MimeType string
	Duration int
}

type Status int

const (
	// StatusDuplicate means the file was already received recently and was
	// dropped before any processing.
	StatusDuplicate Status = iota
	// StatusCompleted means the fast path produced a structured result.
	StatusCompleted
	// StatusDeferred means the audio was persisted for out-of-band
	// processing.
	StatusDeferred
)

// Button describes one inline action offered alongside a prompt.
type Button struct {
	Label string
	Token string
}

// Outcome is the caller-facing result of one ingest event.
type Outcome struct {
	Status           Status
	Summary          string
	TranscriptLength int
	// Prompt is the first disambiguation step, empty when every contact
	// reference was already resolved.
	Prompt  string
	Buttons []Button
	// StoredAs is the generated object name on the fallback path.
	StoredAs string
}

// fastPathStatus classifies one fast-path attempt explicitly instead of
// signalling through caught exceptions.
type fastPathStatus int

const (
	fastPathSuccess fastPathStatus = iota
	fastPathRecoverable
)

type fastPathResult struct {
	status fastPathStatus
	result *pipeline.Result
	err    error
}
