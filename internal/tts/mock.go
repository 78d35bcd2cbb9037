package tts

import "context"

type mockSynthesizer struct{}

func NewMockSynthesizer() Synthesizer {
	return &mockSynthesizer{}
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	// Deterministic placeholder payload sized to the text.
	return make([]byte, len(text)), nil
}
