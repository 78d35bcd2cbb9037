package llm

import "context"

// Message is one entry of the capped history window sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Responder abstracts chat-completion backends.
type Responder interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
