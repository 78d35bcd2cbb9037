package conversation

import (
	"testing"
	"time"
)

func TestSystemMessageAlwaysFirst(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log := NewLog("be helpful", now)

	for i := 0; i < 4; i++ {
		if err := log.Append(Message{Role: RoleUser, Content: "hi", Timestamp: now}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all := log.All()
	if all[0].Role != RoleSystem {
		t.Fatalf("expected system message first, got %q", all[0].Role)
	}
	systemCount := 0
	for _, msg := range all {
		if msg.Role == RoleSystem {
			systemCount++
		}
	}
	if systemCount != 1 {
		t.Fatalf("expected exactly one system message, got %d", systemCount)
	}
}

func TestAppendRequiresContent(t *testing.T) {
	log := NewLog("be helpful", time.Now())
	if err := log.Append(Message{Role: RoleUser}); err == nil {
		t.Fatal("expected error for empty content")
	}
	if log.Len() != 1 {
		t.Fatalf("expected log untouched, got %d entries", log.Len())
	}
}

func TestBoundedView(t *testing.T) {
	now := time.Now()
	log := NewLog("be helpful", now)
	contents := []string{"one", "two", "three", "four", "five"}
	for i, c := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := log.Append(Message{Role: role, Content: c, Timestamp: now}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	view := log.BoundedView(3)
	if len(view) != 4 {
		t.Fatalf("expected 4 messages (system + 3), got %d", len(view))
	}
	if view[0].Role != RoleSystem {
		t.Fatalf("expected system message first in view, got %q", view[0].Role)
	}
	want := []string{"three", "four", "five"}
	for i, w := range want {
		if view[i+1].Content != w {
			t.Fatalf("expected %q at position %d, got %q", w, i+1, view[i+1].Content)
		}
	}

	// A cap larger than the history returns everything.
	if got := log.BoundedView(100); len(got) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(got))
	}

	// The view is a copy; the log itself is untouched.
	view[0].Content = "mutated"
	if log.All()[0].Content != "be helpful" {
		t.Fatal("bounded view mutated the underlying log")
	}
	if log.Len() != 6 {
		t.Fatalf("expected log length 6, got %d", log.Len())
	}
}

func TestBoundedViewEmptyHistory(t *testing.T) {
	log := NewLog("be helpful", time.Now())
	view := log.BoundedView(10)
	if len(view) != 1 || view[0].Role != RoleSystem {
		t.Fatalf("expected only the system message, got %d entries", len(view))
	}
}
