package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/transport"
)

// writerState tracks the state of an SSE ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // WriteChunk has been called at least once
	writerCompleted                    // terminal chunk, error frame, or WriteResponse
)

// sseResponseWriter implements transport.ResponseWriter for HTTP responses.
// It handles both streaming (SSE) and non-streaming (JSON) output.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

func newSSEResponseWriter(w http.ResponseWriter) *sseResponseWriter {
	return &sseResponseWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteChunk sends a single SSE chunk formatted as:
//
//	data: {json}\n
//	\n
//
// After the terminal chunk it also sends:
//
//	data: [DONE]\n
//	\n
func (s *sseResponseWriter) WriteChunk(_ context.Context, chunk *api.ChatChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write chunk: stream is completed")
	}

	if s.state == writerIdle {
		s.startStream()
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshaling chunk: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing chunk: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flushing chunk: %w", err)
	}

	// The terminal chunk ends the stream with the done marker.
	if chunk.Terminal() {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("writing done marker: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("flushing done marker: %w", err)
		}
		s.complete()
	}

	return nil
}

// WriteStreamError sends an in-band error frame and ends the stream. No
// done marker follows: the error is the last thing the client sees.
//
// The frame carries a bare message string, not the structured error body
// used for non-streaming responses:
//
//	data: {"error": "upstream timed out"}\n
//	\n
func (s *sseResponseWriter) WriteStreamError(_ context.Context, apiErr *api.APIError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write error frame: stream is completed")
	}
	if s.state == writerIdle {
		s.startStream()
	}

	data, err := json.Marshal(map[string]string{"error": apiErr.Message})
	if err != nil {
		return fmt.Errorf("marshaling error frame: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing error frame: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flushing error frame: %w", err)
	}
	s.complete()
	return nil
}

// WriteResponse sends a complete non-streaming JSON response.
// This is mutually exclusive with WriteChunk.
func (s *sseResponseWriter) WriteResponse(_ context.Context, resp *api.ChatResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(resp); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseResponseWriter) Flush() error {
	return s.rc.Flush()
}

// startStream sets the SSE headers. Caller holds the lock.
func (s *sseResponseWriter) startStream() {
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.state = writerStreaming
}

// complete marks the stream finished. Caller holds the lock.
func (s *sseResponseWriter) complete() {
	s.state = writerCompleted
}

// hasStartedStreaming returns true if at least one SSE frame was written.
func (s *sseResponseWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming ||
		(s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}
