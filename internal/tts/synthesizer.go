package tts

import "context"

// Synthesizer abstracts text-to-speech backends. Implementations may
// return empty bytes when no audio could be produced.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
