// Command mock-vendor runs a deterministic multi-protocol vendor server
// for integration testing. It speaks all four upstream wire protocols the
// gateway dispatches to: OpenAI Chat Completions, OpenAI Responses,
// Anthropic Messages, and Gemini generateContent. Responses are derived
// from the request content, so tests get predictable output.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("POST /v1/responses", handleResponses)
	mux.HandleFunc("POST /v1/messages", handleMessages)
	mux.HandleFunc("POST /v1beta/models/{model}", handleGemini)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock vendor starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock vendor failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock vendor shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// reply computes the deterministic answer tokens for a prompt.
func reply(prompt string) []string {
	if strings.Contains(strings.ToLower(prompt), "count from 1 to 5") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	if strings.Contains(strings.ToLower(prompt), "fail") {
		return nil
	}
	return []string{"Hello", ", ", "nice", " ", "day", "!"}
}

func sseSetup(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// --- Chat Completions (OpenAI direct chat and relay) ---

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

func (r *chatRequest) lastUser() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	tokens := reply(req.lastUser())
	if tokens == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"mock upstream failure","type":"server_error","code":"mock_failure"}}`))
		return
	}
	text := strings.Join(tokens, "")

	if !req.Stream {
		writeJSON(w, map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": len(tokens), "total_tokens": 10 + len(tokens)},
		})
		return
	}

	flusher, ok := sseSetup(w)
	if !ok {
		return
	}

	chunk := func(delta map[string]any, finish any, usage any) {
		payload := map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion.chunk",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{"index": 0, "delta": delta, "finish_reason": finish}},
		}
		if usage != nil {
			payload["usage"] = usage
			payload["choices"] = []map[string]any{}
		}
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	chunk(map[string]any{"role": "assistant"}, nil, nil)
	for _, tok := range tokens {
		chunk(map[string]any{"content": tok}, nil, nil)
	}
	chunk(map[string]any{}, "stop", nil)
	chunk(nil, nil, map[string]int{"prompt_tokens": 10, "completion_tokens": len(tokens), "total_tokens": 10 + len(tokens)})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// --- Responses (OpenAI reasoning endpoint) ---

type responsesRequest struct {
	Model string `json:"model"`
	Input []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"input"`
	Stream bool `json:"stream"`
}

func handleResponses(w http.ResponseWriter, r *http.Request) {
	var req responsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	var prompt string
	for i := len(req.Input) - 1; i >= 0; i-- {
		if req.Input[i].Role == "user" {
			prompt = req.Input[i].Content
			break
		}
	}
	tokens := reply(prompt)
	text := strings.Join(tokens, "")
	usage := map[string]int{"input_tokens": 12, "output_tokens": len(tokens), "total_tokens": 12 + len(tokens)}

	completed := map[string]any{
		"id":     "resp_mock",
		"object": "response",
		"status": "completed",
		"model":  req.Model,
		"output": []map[string]any{
			{"type": "reasoning", "summary": []map[string]any{{"type": "summary_text", "text": "mock reasoning"}}},
			{"type": "message", "role": "assistant", "content": []map[string]any{{"type": "output_text", "text": text}}},
		},
		"usage": usage,
	}

	if !req.Stream {
		writeJSON(w, completed)
		return
	}

	flusher, ok := sseSetup(w)
	if !ok {
		return
	}
	event := func(typ string, payload map[string]any) {
		payload["type"] = typ
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ, data)
		flusher.Flush()
	}

	event("response.reasoning_summary_text.delta", map[string]any{"delta": "mock reasoning"})
	for _, tok := range tokens {
		event("response.output_text.delta", map[string]any{"delta": tok})
	}
	event("response.completed", map[string]any{"response": completed})
}

// --- Messages (Anthropic) ---

type messagesRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

func handleMessages(w http.ResponseWriter, r *http.Request) {
	var req messagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"type":"error","error":{"type":"invalid_request_error","message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Content
			break
		}
	}
	tokens := reply(prompt)
	text := strings.Join(tokens, "")

	if !req.Stream {
		writeJSON(w, map[string]any{
			"id":          "msg_mock",
			"type":        "message",
			"role":        "assistant",
			"model":       req.Model,
			"content":     []map[string]any{{"type": "text", "text": text}},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 8, "output_tokens": len(tokens)},
		})
		return
	}

	flusher, ok := sseSetup(w)
	if !ok {
		return
	}
	event := func(typ string, payload map[string]any) {
		payload["type"] = typ
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ, data)
		flusher.Flush()
	}

	event("message_start", map[string]any{"message": map[string]any{
		"id": "msg_mock", "role": "assistant", "model": req.Model,
		"usage": map[string]int{"input_tokens": 8, "output_tokens": 0},
	}})
	event("content_block_start", map[string]any{"index": 0, "content_block": map[string]any{"type": "text", "text": ""}})
	for _, tok := range tokens {
		event("content_block_delta", map[string]any{"index": 0, "delta": map[string]any{"type": "text_delta", "text": tok}})
	}
	event("content_block_stop", map[string]any{"index": 0})
	event("message_delta", map[string]any{
		"delta": map[string]any{"stop_reason": "end_turn"},
		"usage": map[string]int{"output_tokens": len(tokens)},
	})
	event("message_stop", map[string]any{})
}

// --- generateContent (Gemini) ---

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func handleGemini(w http.ResponseWriter, r *http.Request) {
	// The path segment is "model:generateContent" or
	// "model:streamGenerateContent".
	spec := r.PathValue("model")
	name, op, ok := strings.Cut(spec, ":")
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req geminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]any{"error": map[string]any{"code": 400, "message": "invalid request", "status": "INVALID_ARGUMENT"}})
		return
	}

	var prompt string
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == "user" && len(req.Contents[i].Parts) > 0 {
			prompt = req.Contents[i].Parts[0].Text
			break
		}
	}
	tokens := reply(prompt)
	text := strings.Join(tokens, "")
	usage := map[string]int{"promptTokenCount": 6, "candidatesTokenCount": len(tokens), "totalTokenCount": 6 + len(tokens)}

	candidate := func(text, finish string) map[string]any {
		c := map[string]any{
			"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
		}
		if finish != "" {
			c["finishReason"] = finish
		}
		return c
	}

	switch op {
	case "generateContent":
		writeJSON(w, map[string]any{
			"candidates":    []map[string]any{candidate(text, "STOP")},
			"usageMetadata": usage,
			"modelVersion":  name,
		})
	case "streamGenerateContent":
		flusher, ok := sseSetup(w)
		if !ok {
			return
		}
		for i, tok := range tokens {
			payload := map[string]any{"candidates": []map[string]any{candidate(tok, "")}}
			if i == len(tokens)-1 {
				payload = map[string]any{
					"candidates":    []map[string]any{candidate(tok, "STOP")},
					"usageMetadata": usage,
				}
			}
			data, _ := json.Marshal(payload)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	default:
		http.NotFound(w, r)
	}
}

// --- Model listing ---

func handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "mock"},
		},
	})
}
