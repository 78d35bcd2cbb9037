package eventstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
)

func newTestStore(t *testing.T, cfg config.EventStoreConfig) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "events.db")
	}
	if cfg.RetentionMode == "" {
		cfg.RetentionMode = "session"
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := Open(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEphemeralStoreIsNoOp(t *testing.T) {
	store := newTestStore(t, config.EventStoreConfig{RetentionMode: "ephemeral"})
	ctx := context.Background()

	if err := store.RecordSession(ctx, "s1"); err != nil {
		t.Fatalf("record session: %v", err)
	}
	if err := store.RecordEvent(ctx, TurnEvent{SessionID: "s1", Kind: KindReply, Text: "hi"}); err != nil {
		t.Fatalf("record event: %v", err)
	}
	events, err := store.ListSessionEvents(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if events != nil {
		t.Fatalf("expected no events from ephemeral store, got %d", len(events))
	}
}

func TestRecordAndListOrdering(t *testing.T) {
	store := newTestStore(t, config.EventStoreConfig{})
	ctx := context.Background()

	if err := store.RecordSession(ctx, "s1"); err != nil {
		t.Fatalf("record session: %v", err)
	}
	// Re-recording the same session is fine.
	if err := store.RecordSession(ctx, "s1"); err != nil {
		t.Fatalf("re-record session: %v", err)
	}

	kinds := []string{KindWelcome, KindTranscript, KindReply, KindSaved}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, kind := range kinds {
		evt := TurnEvent{
			SessionID: "s1",
			Kind:      kind,
			Text:      kind,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.RecordEvent(ctx, evt); err != nil {
			t.Fatalf("record %s: %v", kind, err)
		}
	}

	events, err := store.ListSessionEvents(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != len(kinds) {
		t.Fatalf("expected %d events, got %d", len(kinds), len(events))
	}
	for i, kind := range kinds {
		if events[i].Kind != kind {
			t.Fatalf("expected %q at position %d, got %q", kind, i, events[i].Kind)
		}
	}

	// Events from other sessions stay invisible.
	other, err := store.ListSessionEvents(ctx, "s2", 10)
	if err != nil {
		t.Fatalf("list other session: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no events for unknown session, got %d", len(other))
	}
}

func TestListLimit(t *testing.T) {
	store := newTestStore(t, config.EventStoreConfig{})
	ctx := context.Background()

	if err := store.RecordSession(ctx, "s1"); err != nil {
		t.Fatalf("record session: %v", err)
	}
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		evt := TurnEvent{SessionID: "s1", Kind: KindReply, Text: "r", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.RecordEvent(ctx, evt); err != nil {
			t.Fatalf("record event: %v", err)
		}
	}

	events, err := store.ListSessionEvents(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected limit of 2 applied, got %d", len(events))
	}
}

func TestPruneRetentionDays(t *testing.T) {
	store := newTestStore(t, config.EventStoreConfig{RetentionDays: 30})
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// An old session recorded 40 days before now.
	store.clock = func() time.Time { return now.Add(-40 * 24 * time.Hour) }
	if err := store.RecordSession(ctx, "old"); err != nil {
		t.Fatalf("record old session: %v", err)
	}
	if err := store.RecordEvent(ctx, TurnEvent{SessionID: "old", Kind: KindReply, Text: "stale"}); err != nil {
		t.Fatalf("record old event: %v", err)
	}

	// A fresh session recorded at now.
	store.clock = func() time.Time { return now }
	if err := store.RecordSession(ctx, "fresh"); err != nil {
		t.Fatalf("record fresh session: %v", err)
	}
	if err := store.RecordEvent(ctx, TurnEvent{SessionID: "fresh", Kind: KindReply, Text: "recent"}); err != nil {
		t.Fatalf("record fresh event: %v", err)
	}

	if err := store.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	old, err := store.ListSessionEvents(ctx, "old", 10)
	if err != nil {
		t.Fatalf("list old: %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("expected old events pruned, got %d", len(old))
	}
	fresh, err := store.ListSessionEvents(ctx, "fresh", 10)
	if err != nil {
		t.Fatalf("list fresh: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected fresh events retained, got %d", len(fresh))
	}
}

func TestPruneMaxSessions(t *testing.T) {
	store := newTestStore(t, config.EventStoreConfig{MaxSessions: 1})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		tick := base.Add(time.Duration(i) * time.Hour)
		store.clock = func() time.Time { return tick }
		if err := store.RecordSession(ctx, id); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
		if err := store.RecordEvent(ctx, TurnEvent{SessionID: id, Kind: KindReply, Text: id}); err != nil {
			t.Fatalf("record event %s: %v", id, err)
		}
	}

	if err := store.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	first, err := store.ListSessionEvents(ctx, "first", 10)
	if err != nil {
		t.Fatalf("list first: %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("expected oldest session pruned, got %d events", len(first))
	}
	second, err := store.ListSessionEvents(ctx, "second", 10)
	if err != nil {
		t.Fatalf("list second: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected newest session retained, got %d events", len(second))
	}
}
