package session

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/archive"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/bus"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/conversation"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/eventstore"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/llm"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/pipeline"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/protocol"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/stt"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/tts"
)

// emitter delivers outbound events to one client. The WebSocket
// implementation lives in conn.go; tests substitute fakes.
type emitter interface {
	Emit(v any) error
}

// Session is one connection's conversational state: its log, its
// pipeline engine, and the way back to the client.
type Session struct {
	ID     string
	log    *conversation.Log
	engine *pipeline.Engine
	emit   emitter
	closer func() error
}

// Manager owns the set of live sessions and routes inbound events to the
// matching session's engine. The registry is the only state shared
// across connections; each session's events are processed strictly
// sequentially by its own connection goroutine.
type Manager struct {
	systemPrompt string
	engineOpts   pipeline.Options

	transcriber stt.Transcriber
	responder   llm.Responder
	synth       tts.Synthesizer

	sink   *archive.Sink
	store  *eventstore.Store
	mirror *bus.Mirror
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(systemPrompt string, opts pipeline.Options, transcriber stt.Transcriber, responder llm.Responder, synth tts.Synthesizer, sink *archive.Sink, store *eventstore.Store, mirror *bus.Mirror, logger *slog.Logger) *Manager {
	return &Manager{
		systemPrompt: systemPrompt,
		engineOpts:   opts,
		transcriber:  transcriber,
		responder:    responder,
		synth:        synth,
		sink:         sink,
		store:        store,
		mirror:       mirror,
		logger:       logger.With(slog.String("component", "session-manager")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}
}

// ServeHTTP upgrades the connection and runs the session's sequential
// event loop until the client disconnects.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx := r.Context()
	s := m.register(newWSEmitter(conn), conn.Close)
	defer m.disconnect(s.ID)

	m.logger.Info("client connected", slog.String("session_id", s.ID))

	if err := s.emit.Emit(protocol.Connected{Type: protocol.TypeConnected, SessionID: s.ID}); err != nil {
		m.logger.Warn("failed to send connection confirmation", slogError(err))
		return
	}

	m.sendWelcome(ctx, s)

	for {
		var ev protocol.ClientEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Warn("websocket read failed", slog.String("session_id", s.ID), slogError(err))
			}
			return
		}
		m.handleEvent(ctx, s, ev)
	}
}

// register allocates a Session and adds it to the registry.
func (m *Manager) register(emit emitter, closer func() error) *Session {
	now := time.Now()
	log := conversation.NewLog(m.systemPrompt, now)
	s := &Session{
		ID:     uuid.NewString(),
		log:    log,
		engine: pipeline.NewEngine(log, m.transcriber, m.responder, m.synth, m.engineOpts, m.logger),
		emit:   emit,
		closer: closer,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.RecordSession(context.Background(), s.ID); err != nil {
			m.logger.Warn("failed to record session", slogError(err))
		}
	}
	return s
}

// sendWelcome synthesizes and delivers the greeting before any input is
// read. A failed synthesis still delivers the text so the session can
// proceed without a spoken greeting.
func (m *Manager) sendWelcome(ctx context.Context, s *Session) {
	audio := s.engine.Welcome(ctx)
	resp := protocol.AssistantResponse{
		Type:      protocol.TypeAssistantResponse,
		Text:      s.engine.WelcomeText(),
		Audio:     base64.StdEncoding.EncodeToString(audio),
		IsWelcome: true,
	}
	if err := s.emit.Emit(resp); err != nil {
		m.logger.Warn("failed to send welcome", slog.String("session_id", s.ID), slogError(err))
		return
	}
	m.recordEvent(ctx, s.ID, eventstore.KindWelcome, resp.Text)
	m.mirror.AssistantReply(s.ID, resp.Text, true)
}

// handleEvent dispatches one inbound event. Unknown event kinds are
// ignored without closing the connection.
func (m *Manager) handleEvent(ctx context.Context, s *Session, ev protocol.ClientEvent) {
	switch ev.Type {
	case protocol.TypeUserAudio:
		m.handleUserAudio(ctx, s, ev.Audio)
	case protocol.TypeEndConversation:
		m.handleEndConversation(ctx, s)
	default:
		m.logger.Debug("ignoring unknown event type",
			slog.String("session_id", s.ID), slog.String("type", ev.Type))
	}
}

func (m *Manager) handleUserAudio(ctx context.Context, s *Session, audioB64 string) {
	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		m.emitError(s, "Invalid audio payload")
		return
	}

	result, err := s.engine.HandleUserAudio(ctx, audio)
	switch {
	case errors.Is(err, pipeline.ErrEmptyTranscript):
		m.emitError(s, "Failed to process audio")
		return
	case err != nil:
		// Synthesis failed after a reply was generated: deliver the text
		// without audio rather than discarding the turn.
		var synthErr *pipeline.SynthesisError
		if !errors.As(err, &synthErr) {
			m.emitError(s, "Failed to process audio")
			return
		}
		result = pipeline.Result{Text: synthErr.Text}
	}

	m.recordTurn(ctx, s)

	resp := protocol.AssistantResponse{
		Type:  protocol.TypeAssistantResponse,
		Text:  result.Text,
		Audio: base64.StdEncoding.EncodeToString(result.Audio),
	}
	if err := s.emit.Emit(resp); err != nil {
		m.logger.Warn("failed to send assistant response",
			slog.String("session_id", s.ID), slogError(err))
	}
}

// recordTurn mirrors the latest user/assistant pair to the event store
// and the bus. Failures are logged only.
func (m *Manager) recordTurn(ctx context.Context, s *Session) {
	all := s.log.All()
	if len(all) < 2 {
		return
	}
	reply := all[len(all)-1]
	transcript := all[len(all)-2]
	if transcript.Role == conversation.RoleUser {
		m.recordEvent(ctx, s.ID, eventstore.KindTranscript, transcript.Content)
		m.mirror.TranscriptFinal(s.ID, transcript.Content)
	}
	if reply.Role == conversation.RoleAssistant {
		m.recordEvent(ctx, s.ID, eventstore.KindReply, reply.Content)
		m.mirror.AssistantReply(s.ID, reply.Content, false)
	}
}

func (m *Manager) handleEndConversation(ctx context.Context, s *Session) {
	filename, err := m.sink.Export(s.ID, s.log)
	if err != nil {
		// Persistence failures are silent to the user; the client still
		// gets the acknowledgement, with an empty filename.
		m.logger.Warn("failed to save conversation",
			slog.String("session_id", s.ID), slogError(err))
	} else {
		m.recordEvent(ctx, s.ID, eventstore.KindSaved, filename)
		m.mirror.ConversationSaved(s.ID, filename)
	}
	if err := s.emit.Emit(protocol.ConversationSaved{Type: protocol.TypeConversationSaved, Filename: filename}); err != nil {
		m.logger.Warn("failed to send save confirmation",
			slog.String("session_id", s.ID), slogError(err))
	}
}

// disconnect exports the conversation best-effort and removes the
// session. Calling it for an already-removed ID is a no-op.
func (m *Manager) disconnect(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	filename, err := m.sink.Export(s.ID, s.log)
	if err != nil {
		m.logger.Warn("failed to save conversation on disconnect",
			slog.String("session_id", s.ID), slogError(err))
	} else {
		m.recordEvent(context.Background(), s.ID, eventstore.KindSaved, filename)
		m.mirror.ConversationSaved(s.ID, filename)
	}

	m.logger.Info("client disconnected", slog.String("session_id", s.ID))
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close force-closes every live connection. The per-connection loops
// then run their normal disconnect path.
func (m *Manager) Close() {
	m.mu.Lock()
	closers := make([]func() error, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.closer != nil {
			closers = append(closers, s.closer)
		}
	}
	m.mu.Unlock()
	for _, c := range closers {
		_ = c()
	}
}

func (m *Manager) emitError(s *Session, message string) {
	if err := s.emit.Emit(protocol.ErrorEvent{Type: protocol.TypeError, Message: message}); err != nil {
		m.logger.Warn("failed to send error event",
			slog.String("session_id", s.ID), slogError(err))
	}
}

func (m *Manager) recordEvent(ctx context.Context, sessionID, kind, text string) {
	if m.store == nil {
		return
	}
	if err := m.store.RecordEvent(ctx, eventstore.TurnEvent{SessionID: sessionID, Kind: kind, Text: text}); err != nil {
		m.logger.Warn("failed to record turn event",
			slog.String("session_id", sessionID), slog.String("kind", kind), slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
