package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kanal-dev/kanal/pkg/api"
)

func textChunk(id, content string) *api.ChatChunk {
	return &api.ChatChunk{
		ID:      id,
		Object:  api.ObjectChatChunk,
		Created: 1700000000,
		Model:   "gpt-4o",
		Choices: []api.ChunkChoice{{Delta: api.Delta{Content: content}}},
	}
}

func terminalChunk(id string) *api.ChatChunk {
	return &api.ChatChunk{
		ID:      id,
		Object:  api.ObjectChatChunk,
		Created: 1700000000,
		Model:   "gpt-4o",
		Choices: []api.ChunkChoice{{FinishReason: api.FinishPtr(api.FinishStop)}},
	}
}

func TestSSEWriter_ChunkFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEResponseWriter(rec)
	ctx := context.Background()

	if err := w.WriteChunk(ctx, textChunk("chatcmpl-x", "Hello")); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	if err := w.WriteChunk(ctx, terminalChunk("chatcmpl-x")); err != nil {
		t.Fatalf("WriteChunk (terminal) failed: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3 (two chunks + done): %q", len(frames), body)
	}
	for _, f := range frames {
		if !strings.HasPrefix(f, "data: ") {
			t.Errorf("frame %q missing data prefix", f)
		}
	}
	if frames[2] != "data: [DONE]" {
		t.Errorf("last frame = %q, want data: [DONE]", frames[2])
	}
}

func TestSSEWriter_RejectsWriteAfterTerminal(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEResponseWriter(rec)
	ctx := context.Background()

	if err := w.WriteChunk(ctx, terminalChunk("chatcmpl-x")); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	if err := w.WriteChunk(ctx, textChunk("chatcmpl-x", "late")); err == nil {
		t.Error("expected error writing after terminal chunk")
	}
}

func TestSSEWriter_ModesAreExclusive(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEResponseWriter(rec)
	ctx := context.Background()

	if err := w.WriteChunk(ctx, textChunk("chatcmpl-x", "a")); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	if err := w.WriteResponse(ctx, &api.ChatResponse{}); err == nil {
		t.Error("expected error mixing WriteResponse into a stream")
	}
}

func TestSSEWriter_ErrorFrameEndsStreamWithoutDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEResponseWriter(rec)
	ctx := context.Background()

	if err := w.WriteChunk(ctx, textChunk("chatcmpl-x", "partial")); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	if err := w.WriteStreamError(ctx, api.NewServerError("upstream died")); err != nil {
		t.Fatalf("WriteStreamError failed: %v", err)
	}

	body := rec.Body.String()
	// The frame carries the bare message string, not the structured
	// error body used for non-streaming responses.
	if !strings.Contains(body, "data: {\"error\":\"upstream died\"}\n\n") {
		t.Errorf("error frame missing or misshapen: %q", body)
	}
	if strings.Contains(body, `"type"`) {
		t.Errorf("error frame carries structured fields: %q", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Errorf("done marker follows an error frame: %q", body)
	}

	if err := w.WriteChunk(ctx, textChunk("chatcmpl-x", "late")); err == nil {
		t.Error("expected error writing after error frame")
	}
}

func TestSSEWriter_NonStreamingResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEResponseWriter(rec)

	resp := &api.ChatResponse{
		ID:     "chatcmpl-y",
		Object: api.ObjectChatCompletion,
		Model:  "gpt-4o",
	}
	if err := w.WriteResponse(context.Background(), resp); err != nil {
		t.Fatalf("WriteResponse failed: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}
	if !strings.Contains(rec.Body.String(), `"chatcmpl-y"`) {
		t.Errorf("response body missing id: %q", rec.Body.String())
	}

	if err := w.WriteResponse(context.Background(), resp); err == nil {
		t.Error("expected error on second WriteResponse")
	}
}
