package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
)

type assemblyAITranscriber struct {
	endpoint     string
	apiKey       string
	language     string
	pollInterval time.Duration
	client       *http.Client
}

// NewAssemblyAITranscriber builds a Transcriber backed by the AssemblyAI
// upload + transcript API.
func NewAssemblyAITranscriber(cfg config.STTConfig) Transcriber {
	interval := time.Duration(cfg.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &assemblyAITranscriber{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		language:     cfg.Language,
		pollInterval: interval,
		client:       http.DefaultClient,
	}
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error,omitempty"`
}

func (t *assemblyAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	uploadURL, err := t.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	id, err := t.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	for {
		resp, err := t.fetchTranscript(ctx, id)
		if err != nil {
			return "", err
		}
		switch resp.Status {
		case "completed":
			return strings.TrimSpace(resp.Text), nil
		case "error":
			return "", fmt.Errorf("assemblyai transcription failed: %s", resp.Error)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(t.pollInterval):
		}
	}
}

func (t *assemblyAITranscriber) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("assemblyai upload returned status %s", resp.Status)
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("assemblyai upload response missing upload_url")
	}
	return out.UploadURL, nil
}

func (t *assemblyAITranscriber) createTranscript(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: audioURL, LanguageCode: t.language})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("assemblyai transcript create returned status %s", resp.Status)
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcript response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("assemblyai transcript response missing id")
	}
	return out.ID, nil
}

func (t *assemblyAITranscriber) fetchTranscript(ctx context.Context, id string) (transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"/v2/transcript/"+id, nil)
	if err != nil {
		return transcriptResponse{}, err
	}
	req.Header.Set("Authorization", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return transcriptResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return transcriptResponse{}, fmt.Errorf("assemblyai transcript poll returned status %s", resp.Status)
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transcriptResponse{}, fmt.Errorf("decode transcript poll: %w", err)
	}
	return out, nil
}
