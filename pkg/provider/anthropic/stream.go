package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// parseSSEStream reads Messages API SSE events and sends unified events on
// ch. The channel is NOT closed by this function; the caller is
// responsible for closing it.
//
// The stream spreads its metadata across events: message_start carries the
// input token count, message_delta the stop reason and output token count,
// and message_stop ends the stream. The accumulated values are assembled
// into a single Done event at message_stop.
//
// The "event:" lines are ignored; every payload repeats the event name in
// its "type" field.
func parseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)

	var (
		inputTokens  int
		outputTokens int
		stopReason   string
		doneSent     bool
	)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var event streamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			slog.Warn("skipping malformed SSE event",
				"vendor", "anthropic",
				"error", err.Error(),
			)
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				inputTokens = event.Message.Usage.InputTokens
			}

		case "content_block_delta":
			if event.Delta == nil || event.Delta.Text == "" {
				continue
			}
			if !send(ctx, ch, provider.Event{
				Type:  provider.EventTextDelta,
				Delta: event.Delta.Text,
			}) {
				return
			}

		case "message_delta":
			if event.Delta != nil && event.Delta.StopReason != "" {
				stopReason = event.Delta.StopReason
			}
			if event.Usage != nil {
				outputTokens = event.Usage.OutputTokens
			}

		case "message_stop":
			if doneSent {
				continue
			}
			doneSent = true
			usage := translateUsage(wireUsage{
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
			})
			send(ctx, ch, provider.Event{
				Type:         provider.EventDone,
				FinishReason: mapStopReason(stopReason),
				Usage:        &usage,
			})
			return

		case "error":
			message := "backend stream error"
			if event.Error != nil {
				message = event.Error.Message
			}
			send(ctx, ch, provider.Event{
				Type: provider.EventError,
				Err:  api.NewProviderError("anthropic", 0, "stream_error", message),
			})
			return

		default:
			// content_block_start, content_block_stop, and ping carry
			// nothing the unified stream needs.
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		send(ctx, ch, provider.Event{
			Type: provider.EventError,
			Err:  api.NewProviderTransportError("anthropic", err),
		})
	}
}

// send delivers ev on ch unless the consumer has gone away. A false
// return means the context was cancelled and parsing should stop so the
// vendor stream is released.
func send(ctx context.Context, ch chan<- provider.Event, ev provider.Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
