package conversation

import (
	"errors"
	"time"
)

// Message roles. Exactly one system message exists per log and it is
// always the first entry.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TagWelcome marks the synthetic greeting appended at session start.
const TagWelcome = "welcome"

// Message is one conversational entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag,omitempty"`
}

// Log is the ordered, append-only record of one session's messages.
// A Log is owned by exactly one session and is not safe for concurrent use.
type Log struct {
	messages []Message
}

var errEmptyContent = errors.New("conversation: message content must not be empty")

// NewLog creates a log seeded with the system prompt as its first entry.
func NewLog(systemPrompt string, now time.Time) *Log {
	return &Log{
		messages: []Message{{
			Role:      RoleSystem,
			Content:   systemPrompt,
			Timestamp: now,
		}},
	}
}

// Append adds a message to the end of the log. Insertion order defines
// conversational turn order.
func (l *Log) Append(msg Message) error {
	if msg.Content == "" {
		return errEmptyContent
	}
	l.messages = append(l.messages, msg)
	return nil
}

// BoundedView returns the system message followed by the last cap
// non-system messages in their original order. The underlying log is
// not modified; the returned slice is a copy.
func (l *Log) BoundedView(cap int) []Message {
	rest := l.messages[1:]
	if cap < 0 {
		cap = 0
	}
	if len(rest) > cap {
		rest = rest[len(rest)-cap:]
	}
	view := make([]Message, 0, len(rest)+1)
	view = append(view, l.messages[0])
	view = append(view, rest...)
	return view
}

// All returns the full ordered sequence, system message included.
func (l *Log) All() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len reports the total number of entries, system message included.
func (l *Log) Len() int {
	return len(l.messages)
}
