package archive

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/conversation"
)

func newTestSink(t *testing.T) (*Sink, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewSink(config.ArchiveConfig{Dir: dir}, logger), dir
}

func readRecord(t *testing.T, path string) Record {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return record
}

func TestExportExcludesSystemPrompt(t *testing.T) {
	sink, dir := newTestSink(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log := conversation.NewLog("system prompt", base)
	entries := []conversation.Message{
		{Role: conversation.RoleAssistant, Content: "Welcome!", Timestamp: base.Add(1 * time.Second), Tag: conversation.TagWelcome},
		{Role: conversation.RoleUser, Content: "hello", Timestamp: base.Add(5 * time.Second)},
		{Role: conversation.RoleAssistant, Content: "hi there", Timestamp: base.Add(6 * time.Second)},
	}
	for _, msg := range entries {
		if err := log.Append(msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	filename, err := sink.Export("abc-123", log)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filename != "conversation_abc-123.json" {
		t.Fatalf("unexpected filename: %q", filename)
	}

	record := readRecord(t, filepath.Join(dir, filename))
	if record.SessionID != "abc-123" {
		t.Fatalf("unexpected session id: %q", record.SessionID)
	}
	if len(record.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(record.Messages))
	}
	for _, msg := range record.Messages {
		if msg.Role == conversation.RoleSystem {
			t.Fatal("system message leaked into the archive")
		}
	}
	if record.StartTime == nil || !record.StartTime.Equal(base.Add(1*time.Second)) {
		t.Fatalf("expected start time of first message, got %v", record.StartTime)
	}
	if record.EndTime.IsZero() {
		t.Fatal("expected a set end time")
	}
}

func TestExportEmptyConversation(t *testing.T) {
	sink, dir := newTestSink(t)
	log := conversation.NewLog("system prompt", time.Now())

	filename, err := sink.Export("empty-1", log)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	record := readRecord(t, filepath.Join(dir, filename))
	if len(record.Messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(record.Messages))
	}
	if record.StartTime != nil {
		t.Fatalf("expected null start time, got %v", record.StartTime)
	}
}

func TestExportOverwritesSameSession(t *testing.T) {
	sink, dir := newTestSink(t)
	now := time.Now()
	log := conversation.NewLog("system prompt", now)
	if err := log.Append(conversation.Message{Role: conversation.RoleUser, Content: "one", Timestamp: now}); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := sink.Export("dup-1", log)
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	if err := log.Append(conversation.Message{Role: conversation.RoleAssistant, Content: "two", Timestamp: now}); err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := sink.Export("dup-1", log)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable filename, got %q then %q", first, second)
	}

	record := readRecord(t, filepath.Join(dir, second))
	if len(record.Messages) != 2 {
		t.Fatalf("expected overwritten record with 2 messages, got %d", len(record.Messages))
	}
}
