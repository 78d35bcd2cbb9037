package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/conversation"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/llm"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/stt"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/tts"
)

// ErrEmptyTranscript signals that no usable text was recovered from the
// audio. The conversation log is untouched when this is returned.
var ErrEmptyTranscript = errors.New("pipeline: no speech recognized")

// SynthesisError reports a failed synthesis stage. Text carries the
// already-generated reply so callers can still deliver it without audio.
type SynthesisError struct {
	Text string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("pipeline: synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Result is one completed assistant turn.
type Result struct {
	Text  string
	Audio []byte
}

// Options bound the generator's input window and the external calls.
type Options struct {
	HistoryCap        int
	WelcomeMessage    string
	FallbackReply     string
	TranscribeTimeout time.Duration
	CompleteTimeout   time.Duration
	SynthesizeTimeout time.Duration
}

// Engine sequences transcribe, generate, and synthesize for one session.
// It holds no mutable state beyond the reference to its session's log.
type Engine struct {
	log         *conversation.Log
	transcriber stt.Transcriber
	responder   llm.Responder
	synth       tts.Synthesizer
	opts        Options
	logger      *slog.Logger
	clock       func() time.Time
	tracer      trace.Tracer
	turns       metric.Int64Counter
}

func NewEngine(log *conversation.Log, transcriber stt.Transcriber, responder llm.Responder, synth tts.Synthesizer, opts Options, logger *slog.Logger) *Engine {
	meter := otel.Meter("voice-assistant/pipeline")
	turns, err := meter.Int64Counter("voice_turns_total",
		metric.WithDescription("Completed pipeline turns by outcome"))
	if err != nil {
		logger.Warn("failed to create turn counter", slogError(err))
	}
	return &Engine{
		log:         log,
		transcriber: transcriber,
		responder:   responder,
		synth:       synth,
		opts:        opts,
		logger:      logger.With(slog.String("component", "pipeline")),
		clock:       time.Now,
		tracer:      otel.Tracer("voice-assistant/pipeline"),
		turns:       turns,
	}
}

// HandleUserAudio runs the three stages in order for one utterance.
// A short-circuit on stage 1 leaves the log untouched; otherwise exactly
// one user and one assistant entry are appended, even when generation
// degrades to the fallback reply.
func (e *Engine) HandleUserAudio(ctx context.Context, audio []byte) (Result, error) {
	text, err := e.transcribe(ctx, audio)
	if err != nil {
		e.logger.Warn("transcription failed", slogError(err))
		e.countTurn(ctx, "transcript_empty")
		return Result{}, ErrEmptyTranscript
	}
	if text == "" {
		e.countTurn(ctx, "transcript_empty")
		return Result{}, ErrEmptyTranscript
	}

	reply := e.generate(ctx, text)

	replyAudio, err := e.synthesize(ctx, reply)
	if err != nil {
		e.logger.Warn("synthesis failed", slogError(err))
		e.countTurn(ctx, "synthesis_failed")
		return Result{Text: reply}, &SynthesisError{Text: reply, Err: err}
	}

	e.countTurn(ctx, "ok")
	return Result{Text: reply, Audio: replyAudio}, nil
}

// Welcome appends the fixed greeting and returns its audio. Synthesis
// failure here is non-fatal: the session proceeds without a spoken
// greeting.
func (e *Engine) Welcome(ctx context.Context) []byte {
	_ = e.log.Append(conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   e.opts.WelcomeMessage,
		Timestamp: e.clock(),
		Tag:       conversation.TagWelcome,
	})

	audio, err := e.synthesize(ctx, e.opts.WelcomeMessage)
	if err != nil {
		e.logger.Warn("welcome synthesis failed", slogError(err))
		return nil
	}
	return audio
}

// WelcomeText returns the fixed greeting content.
func (e *Engine) WelcomeText() string {
	return e.opts.WelcomeMessage
}

func (e *Engine) transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline.transcribe")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.opts.TranscribeTimeout)
	defer cancel()
	return e.transcriber.Transcribe(ctx, audio)
}

// generate appends the user message, calls the model over the bounded
// window, and appends the assistant reply. A generator failure is masked
// by the fixed fallback so the turn never aborts at this stage.
func (e *Engine) generate(ctx context.Context, userText string) string {
	ctx, span := e.tracer.Start(ctx, "pipeline.generate")
	defer span.End()

	_ = e.log.Append(conversation.Message{
		Role:      conversation.RoleUser,
		Content:   userText,
		Timestamp: e.clock(),
	})

	window := e.log.BoundedView(e.opts.HistoryCap)
	messages := make([]llm.Message, 0, len(window))
	for _, m := range window {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.CompleteTimeout)
	defer cancel()

	reply, err := e.responder.Complete(callCtx, messages)
	if err != nil || reply == "" {
		if err != nil {
			e.logger.Warn("generation failed, using fallback reply", slogError(err))
		}
		reply = e.opts.FallbackReply
	}

	_ = e.log.Append(conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   reply,
		Timestamp: e.clock(),
	})
	return reply
}

func (e *Engine) synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline.synthesize")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.opts.SynthesizeTimeout)
	defer cancel()

	audio, err := e.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("synthesizer returned no audio")
	}
	return audio, nil
}

func (e *Engine) countTurn(ctx context.Context, outcome string) {
	if e.turns == nil {
		return
	}
	e.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
