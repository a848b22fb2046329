// Package integration provides integration tests for the kanal gateway.
//
// Tests run against a real kanal HTTP server backed by a mock vendor
// backend that speaks all four upstream wire protocols, both started
// in-process using net/http/httptest.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kanal-dev/kanal/pkg/gateway"
	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/provider/anthropic"
	"github.com/kanal-dev/kanal/pkg/provider/gemini"
	"github.com/kanal-dev/kanal/pkg/provider/openai"
	"github.com/kanal-dev/kanal/pkg/provider/relay"
	"github.com/kanal-dev/kanal/pkg/provider/responses"
	"github.com/kanal-dev/kanal/pkg/registry"
	transporthttp "github.com/kanal-dev/kanal/pkg/transport/http"
	"github.com/kanal-dev/kanal/pkg/usage"
)

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the kanal server and mock vendor for testing.
type TestEnvironment struct {
	KanalServer *httptest.Server
	MockVendor  *httptest.Server
	Sink        *memorySink
}

// TestMain starts the mock vendor and kanal server before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment creates a mock vendor backend and a kanal server
// with one model registered per adapter family, all wired to the mock.
func setupTestEnvironment() *TestEnvironment {
	mockVendor := startMockVendor()

	openaiProv, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: mockVendor.URL})
	if err != nil {
		panic(fmt.Sprintf("creating openai provider: %v", err))
	}
	responsesProv, err := responses.New(responses.Config{APIKey: "test-key", BaseURL: mockVendor.URL})
	if err != nil {
		panic(fmt.Sprintf("creating responses provider: %v", err))
	}
	anthropicProv, err := anthropic.New(anthropic.Config{APIKey: "test-key", BaseURL: mockVendor.URL})
	if err != nil {
		panic(fmt.Sprintf("creating anthropic provider: %v", err))
	}
	geminiProv, err := gemini.New(gemini.Config{APIKey: "test-key", BaseURL: mockVendor.URL})
	if err != nil {
		panic(fmt.Sprintf("creating gemini provider: %v", err))
	}
	relayProv, err := relay.New(relay.Config{BaseURL: mockVendor.URL})
	if err != nil {
		panic(fmt.Sprintf("creating relay provider: %v", err))
	}

	reg, err := registry.New(
		registry.Descriptor{ID: "mock-chat", Vendor: registry.VendorOpenAI, MaxTokens: 4096, SupportsStreaming: true},
		registry.Descriptor{ID: "mock-reasoner", Vendor: registry.VendorOpenAI, Endpoint: registry.EndpointReasoning, MaxTokens: 8192, SupportsStreaming: true},
		registry.Descriptor{ID: "mock-claude", Vendor: registry.VendorAnthropic, WireID: "mock-claude-20250101", MaxTokens: 4096, SupportsStreaming: true},
		registry.Descriptor{ID: "mock-gemini", Vendor: registry.VendorGemini, MaxTokens: 4096, SupportsStreaming: true},
		registry.Descriptor{ID: "mock-relay", Vendor: registry.VendorRelay, MaxTokens: 4096, SupportsStreaming: true},
		registry.Descriptor{ID: "mock-nostream", Vendor: registry.VendorOpenAI, MaxTokens: 4096},
	)
	if err != nil {
		panic(fmt.Sprintf("creating registry: %v", err))
	}

	sink := &memorySink{}

	gw, err := gateway.New(gateway.Config{
		Registry: reg,
		Providers: map[gateway.Family]provider.Provider{
			gateway.FamilyDirectChat:      openaiProv,
			gateway.FamilyResponses:       responsesProv,
			gateway.FamilyMessages:        anthropicProv,
			gateway.FamilyGenerateContent: geminiProv,
			gateway.FamilyRelay:           relayProv,
		},
		DefaultModel: "mock-chat",
		Sink:         sink,
	})
	if err != nil {
		panic(fmt.Sprintf("creating gateway: %v", err))
	}

	adapter := transporthttp.NewAdapter(gw, gw, transporthttp.DefaultConfig())
	kanalServer := httptest.NewServer(adapter.Handler())

	return &TestEnvironment{
		KanalServer: kanalServer,
		MockVendor:  mockVendor,
		Sink:        sink,
	}
}

// Teardown stops both servers.
func (env *TestEnvironment) Teardown() {
	if env.KanalServer != nil {
		env.KanalServer.Close()
	}
	if env.MockVendor != nil {
		env.MockVendor.Close()
	}
}

// BaseURL returns the kanal server base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.KanalServer.URL
}

// memorySink records usage events for assertions.
type memorySink struct {
	mu     sync.Mutex
	events []usage.Event
}

var _ usage.Sink = (*memorySink)(nil)

func (s *memorySink) Report(_ context.Context, ev usage.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a snapshot of the recorded events.
func (s *memorySink) Events() []usage.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]usage.Event(nil), s.events...)
}

// waitForEvent polls until the sink has recorded at least n events.
func (s *memorySink) waitForEvent(t *testing.T, n int) []usage.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := s.Events(); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d usage events (have %d)", n, len(s.Events()))
	return nil
}

// --- HTTP helpers ---

// postJSON sends a POST request with JSON body and returns the response.
func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// jsonReader marshals the body and returns a reader over it.
func jsonReader(t *testing.T, body any) io.Reader {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	return bytes.NewReader(data)
}

// getURL sends a GET request and returns the response.
func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// completionRequest builds a minimal completion request body.
func completionRequest(model, content string, stream bool) map[string]any {
	return map[string]any{
		"model":    model,
		"messages": []map[string]any{{"role": "user", "content": content}},
		"stream":   stream,
	}
}

// --- Mock vendor backend ---

// mockReply computes the deterministic answer tokens for a prompt.
func mockReply(prompt string) []string {
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "count") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	return []string{"Hello", " ", "from", " ", "mock", "!"}
}

// startMockVendor creates an httptest server speaking the Chat
// Completions, Responses, Messages, and generateContent protocols.
func startMockVendor() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleMockChat)
	mux.HandleFunc("POST /v1/responses", handleMockResponses)
	mux.HandleFunc("POST /v1/messages", handleMockMessages)
	mux.HandleFunc("POST /models/{model}", handleMockGemini)
	return httptest.NewServer(mux)
}

func mockSSEHeaders(w http.ResponseWriter) http.Flusher {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	return w.(http.Flusher)
}

func writeMockJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func lastUserContent(messages []struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// handleMockChat serves the Chat Completions protocol. A prompt
// containing "upstream failure" triggers a vendor error; "truncate"
// triggers a length finish.
func handleMockChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream bool `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	prompt := lastUserContent(req.Messages)
	if strings.Contains(strings.ToLower(prompt), "upstream failure") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"mock rate limit exceeded","type":"rate_limit_error","code":"rate_limited"}}`))
		return
	}

	finish := "stop"
	if strings.Contains(strings.ToLower(prompt), "truncate") {
		finish = "length"
	}
	tokens := mockReply(prompt)
	text := strings.Join(tokens, "")
	mockUsage := map[string]int{"prompt_tokens": 10, "completion_tokens": len(tokens), "total_tokens": 10 + len(tokens)}

	if !req.Stream {
		writeMockJSON(w, map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": finish,
			}},
			"usage": mockUsage,
		})
		return
	}

	flusher := mockSSEHeaders(w)
	chunk := func(payload map[string]any) {
		payload["id"] = "chatcmpl-mock"
		payload["object"] = "chat.completion.chunk"
		payload["model"] = req.Model
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	chunk(map[string]any{"choices": []map[string]any{{"index": 0, "delta": map[string]any{"role": "assistant"}, "finish_reason": nil}}})
	for _, tok := range tokens {
		chunk(map[string]any{"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": tok}, "finish_reason": nil}}})
	}
	chunk(map[string]any{"choices": []map[string]any{{"index": 0, "delta": map[string]any{}, "finish_reason": finish}}})
	chunk(map[string]any{"choices": []map[string]any{}, "usage": mockUsage})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// handleMockResponses serves the Responses protocol with native events.
func handleMockResponses(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
		Input []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"input"`
		Stream bool `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	tokens := mockReply(lastUserContent(req.Input))
	text := strings.Join(tokens, "")
	completed := map[string]any{
		"id":     "resp_mock",
		"object": "response",
		"status": "completed",
		"model":  req.Model,
		"output": []map[string]any{
			{"type": "reasoning"},
			{"type": "message", "role": "assistant", "content": []map[string]any{{"type": "output_text", "text": text}}},
		},
		"usage": map[string]int{"input_tokens": 12, "output_tokens": len(tokens), "total_tokens": 12 + len(tokens)},
	}

	if !req.Stream {
		writeMockJSON(w, completed)
		return
	}

	flusher := mockSSEHeaders(w)
	event := func(typ string, payload map[string]any) {
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

// handleMockMessages serves the Anthropic Messages protocol.
func handleMockMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream bool `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"type":"error","error":{"type":"invalid_request_error","message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	tokens := mockReply(lastUserContent(req.Messages))
	text := strings.Join(tokens, "")

	if !req.Stream {
		writeMockJSON(w, map[string]any{
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

	flusher := mockSSEHeaders(w)
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

// handleMockGemini serves generateContent and streamGenerateContent. The
// path segment is "model:generateContent" or "model:streamGenerateContent".
func handleMockGemini(w http.ResponseWriter, r *http.Request) {
	_, op, ok := strings.Cut(r.PathValue("model"), ":")
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMockJSON(w, map[string]any{"error": map[string]any{"code": 400, "message": "invalid request", "status": "INVALID_ARGUMENT"}})
		return
	}

	var prompt string
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == "user" && len(req.Contents[i].Parts) > 0 {
			prompt = req.Contents[i].Parts[0].Text
			break
		}
	}
	tokens := mockReply(prompt)
	text := strings.Join(tokens, "")
	mockUsage := map[string]int{"promptTokenCount": 6, "candidatesTokenCount": len(tokens), "totalTokenCount": 6 + len(tokens)}

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
		writeMockJSON(w, map[string]any{
			"candidates":    []map[string]any{candidate(text, "STOP")},
			"usageMetadata": mockUsage,
		})
	case "streamGenerateContent":
		flusher := mockSSEHeaders(w)
		for i, tok := range tokens {
			payload := map[string]any{"candidates": []map[string]any{candidate(tok, "")}}
			if i == len(tokens)-1 {
				payload = map[string]any{
					"candidates":    []map[string]any{candidate(tok, "STOP")},
					"usageMetadata": mockUsage,
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
