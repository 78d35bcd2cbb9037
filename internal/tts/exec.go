package tts

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
)

type execSynthesizer struct {
	cmd        []string
	voice      string
	sampleRate int
	channels   int
	mu         sync.Mutex
}

type execRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execChunk struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
}

// NewExecSynthesizer wraps a local command that reads a JSON request on
// stdin and emits base64 PCM chunks, one JSON object per line.
func NewExecSynthesizer(cfg config.TTSConfig) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynthesizer{
		cmd:        args,
		voice:      cfg.Voice,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}, nil
}

func (e *execSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(execRequest{
		Text:       text,
		Voice:      e.voice,
		SampleRate: e.sampleRate,
		Channels:   e.channels,
	})
	if err != nil {
		return nil, err
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	if _, err := stdin.Write(data); err != nil {
		_ = cmd.Wait()
		return nil, err
	}
	stdin.Close()

	var audio []byte
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk execChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			_ = cmd.Wait()
			return nil, fmt.Errorf("decode tts chunk: %w", err)
		}
		pcm, err := base64.StdEncoding.DecodeString(chunk.PCMBase64)
		if err != nil {
			_ = cmd.Wait()
			return nil, fmt.Errorf("decode tts pcm: %w", err)
		}
		audio = append(audio, pcm...)
		if chunk.Final {
			break
		}
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("tts command failed: %w", err)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return audio, nil
}
