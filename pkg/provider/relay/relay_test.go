package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/provider/openaicompat"
)

func strPtr(s string) *string { return &s }

func okResponse(content string) openaicompat.ChatCompletionResponse {
	return openaicompat.ChatCompletionResponse{
		ID:    "chatcmpl-relay-1",
		Model: "m",
		Choices: []openaicompat.ChatChoice{
			{
				Message:      openaicompat.ChatResponseMessage{Role: "assistant", Content: strPtr(content)},
				FinishReason: "stop",
			},
		},
		Usage: &openaicompat.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func TestNew_MissingBaseURL(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for missing BaseURL")
	}
}

func TestAdapter_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(okResponse("Hello from the relay!"))
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	defer a.Close()

	result, err := a.Complete(context.Background(), &provider.Request{
		Model:    "m",
		Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.Content != "Hello from the relay!" {
		t.Errorf("content = %q", result.Content)
	}
	if result.FinishReason != api.FinishStop {
		t.Errorf("finish reason = %q, want stop", result.FinishReason)
	}
}

func TestAdapter_ModelMapping(t *testing.T) {
	var receivedModel string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var chatReq openaicompat.ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&chatReq)
		receivedModel = chatReq.Model

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(okResponse("ok"))
	}))
	defer srv.Close()

	a, err := New(Config{
		BaseURL: srv.URL,
		ModelMapping: map[string]string{
			"gpt-4o": "openai/gpt-4o",
		},
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	defer a.Close()

	req := &provider.Request{
		Model:    "gpt-4o",
		Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}},
	}
	if _, err := a.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if receivedModel != "openai/gpt-4o" {
		t.Errorf("mapped model = %q, want openai/gpt-4o", receivedModel)
	}

	// Unmapped model passes through unchanged.
	req.Model = "unknown-model"
	if _, err := a.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if receivedModel != "unknown-model" {
		t.Errorf("pass-through model = %q, want unknown-model", receivedModel)
	}
}

func TestAdapter_AuthorizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer relay-key-123" {
			t.Errorf("Authorization = %q, want Bearer relay-key-123", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(okResponse("ok"))
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL, APIKey: "relay-key-123"})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	defer a.Close()

	if _, err := a.Complete(context.Background(), &provider.Request{
		Model:    "m",
		Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}},
	}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
}

func TestAdapter_Stream(t *testing.T) {
	sseData := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":"Hello"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}

data: [DONE]

`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sseData))
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	defer a.Close()

	ch, err := a.Stream(context.Background(), &provider.Request{
		Model:    "m",
		Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}},
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var text string
	var doneFound bool
	for ev := range ch {
		if ev.Type == provider.EventTextDelta {
			text += ev.Delta
		}
		if ev.Type == provider.EventDone {
			doneFound = true
		}
	}

	if text != "Hello world" {
		t.Errorf("accumulated text = %q, want %q", text, "Hello world")
	}
	if !doneFound {
		t.Error("expected Done event, not found")
	}
}

func TestAdapter_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %s, want /v1/models", r.URL.Path)
		}
		resp := openaicompat.ChatModelsResponse{
			Object: "list",
			Data: []openaicompat.ChatModel{
				{ID: "openai/gpt-4o", Object: "model", OwnedBy: "openai"},
				{ID: "anthropic/claude-sonnet-4", Object: "model", OwnedBy: "anthropic"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	defer a.Close()

	models, err := a.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].ID != "openai/gpt-4o" {
		t.Errorf("model[0].ID = %q", models[0].ID)
	}
}
