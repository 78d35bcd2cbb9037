package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
)

type elevenLabsSynthesizer struct {
	endpoint        string
	apiKey          string
	voice           string
	model           string
	optimizeLatency int
	client          *http.Client
}

// NewElevenLabsSynthesizer builds a Synthesizer backed by the ElevenLabs
// streaming text-to-speech API. The streamed body is drained into a
// single buffer; chunked client playback is handled at the transport.
func NewElevenLabsSynthesizer(cfg config.TTSConfig) Synthesizer {
	return &elevenLabsSynthesizer{
		endpoint:        strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:          cfg.APIKey,
		voice:           cfg.Voice,
		model:           cfg.Model,
		optimizeLatency: cfg.OptimizeLatency,
		client:          http.DefaultClient,
	}
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

func (s *elevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: s.model})
	if err != nil {
		return nil, err
	}

	endpoint := s.endpoint + "/v1/text-to-speech/" + url.PathEscape(s.voice) + "/stream"
	if s.optimizeLatency > 0 {
		endpoint += "?optimize_streaming_latency=" + strconv.Itoa(s.optimizeLatency)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elevenlabs returned status %s", resp.Status)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis stream: %w", err)
	}
	return audio, nil
}
