package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/archive"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/bus"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/eventstore"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/llm"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/natsserver"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/pipeline"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/session"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/stt"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/tts"
)

type Runtime struct {
	cfg           config.Config
	logger        *slog.Logger
	httpServer    *http.Server
	metricsServer *http.Server
	tracerClose   func(context.Context) error
	busClient     *bus.Client
	ready         atomic.Bool
	wg            sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer store.Close()

	var embedded *natsserver.EmbeddedServer
	var mirror *bus.Mirror
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded NATS server: %w", err)
		}
		defer embedded.Shutdown()

		r.busClient, err = bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer r.busClient.Close()
		mirror = bus.NewMirror(r.busClient, r.logger)
	}

	transcriber, err := buildTranscriber(r.cfg.STT)
	if err != nil {
		return err
	}
	responder, err := buildResponder(r.cfg.LLM)
	if err != nil {
		return err
	}
	synth, err := buildSynthesizer(r.cfg.TTS)
	if err != nil {
		return err
	}

	sink := archive.NewSink(r.cfg.Archive, r.logger)
	manager := session.NewManager(
		r.cfg.Conversation.SystemPrompt,
		pipeline.Options{
			HistoryCap:        r.cfg.Conversation.HistoryCap,
			WelcomeMessage:    r.cfg.Conversation.WelcomeMessage,
			FallbackReply:     r.cfg.Conversation.FallbackReply,
			TranscribeTimeout: time.Duration(r.cfg.STT.TimeoutMS) * time.Millisecond,
			CompleteTimeout:   time.Duration(r.cfg.LLM.TimeoutMS) * time.Millisecond,
			SynthesizeTimeout: time.Duration(r.cfg.TTS.TimeoutMS) * time.Millisecond,
		},
		transcriber, responder, synth, sink, store, mirror, r.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.Handle("/ws", manager)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		r.metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if r.metricsServer != nil {
		if err := r.metricsServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	// Upgraded connections are not covered by Shutdown; close them so
	// their loops run the disconnect path.
	manager.Close()
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func buildTranscriber(cfg config.STTConfig) (stt.Transcriber, error) {
	switch cfg.Mode {
	case "assemblyai":
		return stt.NewAssemblyAITranscriber(cfg), nil
	case "exec":
		return stt.NewExecTranscriber(cfg)
	default:
		return stt.NewMockTranscriber(), nil
	}
}

func buildResponder(cfg config.LLMConfig) (llm.Responder, error) {
	switch cfg.Mode {
	case "openai":
		return llm.NewOpenAIResponder(cfg), nil
	case "exec":
		return llm.NewExecResponder(cfg.Command)
	default:
		return llm.NewMockResponder(), nil
	}
}

func buildSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Mode {
	case "elevenlabs":
		return tts.NewElevenLabsSynthesizer(cfg), nil
	case "exec":
		return tts.NewExecSynthesizer(cfg)
	default:
		return tts.NewMockSynthesizer(), nil
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && (!r.cfg.Bus.Enabled || r.busClient.Healthy()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
