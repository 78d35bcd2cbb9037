package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/conversation"
)

// Record is the durable per-session conversation layout. The system
// prompt is never exported.
type Record struct {
	SessionID string                 `json:"session_id"`
	StartTime *time.Time             `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Messages  []conversation.Message `json:"messages"`
}

// Sink serializes finished conversations to JSON files. Exports are
// keyed by session identity, so repeating an export overwrites the same
// file rather than erroring.
type Sink struct {
	dir    string
	logger *slog.Logger
	clock  func() time.Time
}

func NewSink(cfg config.ArchiveConfig, logger *slog.Logger) *Sink {
	return &Sink{
		dir:    cfg.Dir,
		logger: logger.With(slog.String("component", "archive")),
		clock:  time.Now,
	}
}

// Export writes the session's non-system messages to
// conversation_<sessionID>.json and returns the filename.
func (s *Sink) Export(sessionID string, log *conversation.Log) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	all := log.All()
	messages := make([]conversation.Message, 0, len(all))
	for _, msg := range all {
		if msg.Role == conversation.RoleSystem {
			continue
		}
		messages = append(messages, msg)
	}

	record := Record{
		SessionID: sessionID,
		EndTime:   s.clock().UTC(),
		Messages:  messages,
	}
	if len(messages) > 0 {
		start := messages[0].Timestamp
		record.StartTime = &start
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal conversation record: %w", err)
	}

	filename := fmt.Sprintf("conversation_%s.json", sessionID)
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write conversation record: %w", err)
	}

	s.logger.Info("conversation saved",
		slog.String("session_id", sessionID),
		slog.String("filename", filename),
		slog.Int("messages", len(messages)))
	return filename, nil
}
