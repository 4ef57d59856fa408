package speech

import (
	"context"
	"io"
)

// Request carries the audio to transcribe. Language is a BCP-47 hint; the
// value "auto" (or empty) lets the provider detect the language itself.
type Request struct {
	File        io.Reader
	Filename    string
	ContentType string
	Language    string
}

// Result is the provider's transcription output.
type Result struct {
	Text string
}

// Recognizer is the interface for speech-to-text providers.
type Recognizer interface {
	// Transcribe converts the request's audio into text.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
