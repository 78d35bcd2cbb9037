package llm

import (
	"context"
	"strings"
)

type mockResponder struct{}

func NewMockResponder() Responder { return &mockResponder{} }

func (m *mockResponder) Complete(_ context.Context, messages []Message) (string, error) {
	prompt := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			prompt = messages[i].Content
			break
		}
	}
	return "[mock completion for " + strings.TrimSpace(prompt) + "]", nil
}
