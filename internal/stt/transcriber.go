package stt

import "context"

// Transcriber abstracts speech-to-text backends. An empty string with a
// nil error means no speech was detected in the audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
