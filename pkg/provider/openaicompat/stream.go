package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/kanal-dev/kanal/pkg/provider"
)

// StreamState tracks translation state across SSE chunks of one stream.
// With stream_options.include_usage the backend sends the finish_reason
// chunk first and a separate usage-only chunk afterwards; the finish
// reason is held here until the usage arrives so that exactly one Done
// event is emitted per stream.
type StreamState struct {
	Finish   string
	DoneSent bool
}

// ParseSSEStream reads Chat Completions SSE chunks from the given reader,
// translates each chunk to Event values, and sends them on ch. The channel
// is NOT closed by this function; the caller is responsible for closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Malformed chunks are logged and skipped. Context cancellation stops
// reading immediately, including while blocked on a full channel, so the
// caller's deferred body close always runs.
func ParseSSEStream(ctx context.Context, vendor string, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)
	state := &StreamState{}

	for scanner.Scan() {
		// Check for context cancellation between lines.
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// SSE lines that don't start with "data: " are ignored
		// (e.g., empty lines, comments starting with ":").
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")

		// Handle the [DONE] sentinel. Some backends end the stream here
		// without a usage-only chunk; emit the pending Done in that case.
		if payload == "[DONE]" {
			if !state.DoneSent {
				state.DoneSent = true
				SendEvent(ctx, ch, provider.Event{
					Type:         provider.EventDone,
					FinishReason: MapFinishReason(state.Finish),
				})
			}
			return
		}

		// Parse the JSON chunk.
		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"vendor", vendor,
				"error", err.Error(),
				"data", Truncate(payload, 200),
			)
			continue
		}

		// Translate chunk to provider events and send them.
		if !TranslateChunk(ctx, &chunk, state, ch) {
			return
		}
	}

	// Scanner error (e.g., connection dropped).
	if err := scanner.Err(); err != nil {
		// Context cancellation is not an error from our perspective.
		if ctx.Err() != nil {
			return
		}
		SendEvent(ctx, ch, provider.Event{
			Type: provider.EventError,
			Err:  MapNetworkError(vendor, err),
		})
	}
}

// SendEvent delivers ev on ch unless the consumer has gone away. It
// reports whether the event was delivered; a false return means the
// context was cancelled and the stream should be released.
func SendEvent(ctx context.Context, ch chan<- provider.Event, ev provider.Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// TranslateChunk converts a single ChatCompletionChunk into zero or more
// Event values sent on the channel, updating the stream state. It reports
// whether the consumer is still listening; false means stop parsing.
func TranslateChunk(ctx context.Context, chunk *ChatCompletionChunk, state *StreamState, ch chan<- provider.Event) bool {
	// No choices means a usage-only final chunk (sent with
	// stream_options.include_usage). It carries the held finish reason.
	if len(chunk.Choices) == 0 {
		if chunk.Usage != nil && !state.DoneSent {
			state.DoneSent = true
			usage := translateUsage(chunk.Usage)
			return SendEvent(ctx, ch, provider.Event{
				Type:         provider.EventDone,
				FinishReason: MapFinishReason(state.Finish),
				Usage:        &usage,
			})
		}
		return true
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	// finish_reason signals completion for this choice. Hold it until the
	// usage chunk unless this chunk already carries usage itself.
	if choice.FinishReason != nil {
		state.Finish = *choice.FinishReason
		if chunk.Usage != nil && !state.DoneSent {
			state.DoneSent = true
			usage := translateUsage(chunk.Usage)
			return SendEvent(ctx, ch, provider.Event{
				Type:         provider.EventDone,
				FinishReason: MapFinishReason(state.Finish),
				Usage:        &usage,
			})
		}
		return true
	}

	// Reasoning content delta (e.g., DeepSeek R1 via a relay).
	if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
		if !SendEvent(ctx, ch, provider.Event{
			Type:  provider.EventReasoningDelta,
			Delta: *delta.ReasoningContent,
		}) {
			return false
		}
		// Don't return: the same chunk might also have text content.
	}

	// Text content delta.
	if delta.Content != nil && *delta.Content != "" {
		return SendEvent(ctx, ch, provider.Event{
			Type:  provider.EventTextDelta,
			Delta: *delta.Content,
		})
	}

	// Role-only chunk (first chunk signaling a new message) and empty
	// deltas carry no information in the unified stream. Silently skip.
	return true
}

// Truncate limits a string to maxLen characters for log output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
