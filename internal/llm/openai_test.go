package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amanp27/Voice-Assistant-Agent-SIM/internal/config"
)

func TestOpenAIComplete(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "It is noon."}},
			},
		})
	}))
	defer srv.Close()

	responder := NewOpenAIResponder(config.LLMConfig{
		Endpoint:    srv.URL,
		APIKey:      "sk-test",
		Model:       "gpt-4o-mini",
		MaxTokens:   150,
		Temperature: 0.7,
	})

	reply, err := responder.Complete(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "what time is it"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "It is noon." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" || gotReq.MaxTokens != 150 {
		t.Fatalf("unexpected request payload: %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestOpenAICompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	}))
	defer srv.Close()

	responder := NewOpenAIResponder(config.LLMConfig{Endpoint: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
	if _, err := responder.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	responder := NewOpenAIResponder(config.LLMConfig{Endpoint: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
	if _, err := responder.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestMockResponder(t *testing.T) {
	responder := NewMockResponder()
	reply, err := responder.Complete(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply == "" {
		t.Fatal("expected non-empty mock reply")
	}
}
