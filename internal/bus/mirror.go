package bus

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/protocol"
)

// Mirror publishes session events onto the bus for downstream observers.
// A nil Mirror is valid and drops everything, so callers never need to
// branch on whether the bus is enabled.
type Mirror struct {
	client *Client
	logger *slog.Logger
}

func NewMirror(client *Client, logger *slog.Logger) *Mirror {
	if client == nil {
		return nil
	}
	return &Mirror{
		client: client,
		logger: logger.With(slog.String("component", "bus-mirror")),
	}
}

func (m *Mirror) TranscriptFinal(sessionID, text string) {
	if m == nil {
		return
	}
	m.publish(protocol.SubjectTranscriptFinal, protocol.TranscriptNotice{
		SessionID: sessionID,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

func (m *Mirror) AssistantReply(sessionID, text string, welcome bool) {
	if m == nil {
		return
	}
	m.publish(protocol.SubjectAssistantReply, protocol.ReplyNotice{
		SessionID: sessionID,
		Text:      text,
		Welcome:   welcome,
		Timestamp: time.Now().UTC(),
	})
}

func (m *Mirror) ConversationSaved(sessionID, filename string) {
	if m == nil {
		return
	}
	m.publish(protocol.SubjectConversationSaved, protocol.SavedNotice{
		SessionID: sessionID,
		Filename:  filename,
		Timestamp: time.Now().UTC(),
	})
}

func (m *Mirror) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Warn("failed to marshal bus notice", slog.String("error", err.Error()))
		return
	}
	if err := m.client.Conn().Publish(subject, data); err != nil {
		m.logger.Warn("failed to publish bus notice",
			slog.String("subject", subject), slog.String("error", err.Error()))
	}
}
