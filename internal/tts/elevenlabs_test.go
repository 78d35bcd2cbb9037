package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
)

func TestElevenLabsSynthesize(t *testing.T) {
	audio := []byte{0x01, 0x02, 0x03, 0x04}
	var gotKey, gotLatency, gotPath string
	var gotReq synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotLatency = r.URL.Query().Get("optimize_streaming_latency")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write(audio)
	}))
	defer srv.Close()

	synth := NewElevenLabsSynthesizer(config.TTSConfig{
		Endpoint:        srv.URL,
		APIKey:          "xi-test",
		Voice:           "21m00Tcm4TlvDq8ikWAM",
		Model:           "eleven_turbo_v2_5",
		OptimizeLatency: 4,
	})

	got, err := synth.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Fatalf("unexpected audio: %v", got)
	}
	if gotPath != "/v1/text-to-speech/21m00Tcm4TlvDq8ikWAM/stream" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotKey != "xi-test" {
		t.Fatalf("unexpected api key header: %q", gotKey)
	}
	if gotLatency != "4" {
		t.Fatalf("unexpected latency parameter: %q", gotLatency)
	}
	if gotReq.Text != "hello world" || gotReq.ModelID != "eleven_turbo_v2_5" {
		t.Fatalf("unexpected request payload: %+v", gotReq)
	}
}

func TestElevenLabsSynthesizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	synth := NewElevenLabsSynthesizer(config.TTSConfig{Endpoint: srv.URL, APIKey: "bad", Voice: "v1"})
	if _, err := synth.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestMockSynthesizer(t *testing.T) {
	synth := NewMockSynthesizer()
	audio, err := synth.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(audio) == 0 {
		t.Fatal("expected non-empty mock audio")
	}
}
