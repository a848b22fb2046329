package responses

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

// parseSSEStream reads Responses API SSE events from the reader and maps
// them to provider events sent on ch. The channel is NOT closed by this
// function; the caller is responsible for closing it.
//
// Each wire event is an "event: <tag>" line followed by a "data: <json>"
// line. Unknown tags are skipped; delta tags with malformed payloads are
// logged and skipped.
func parseSSEStream(ctx context.Context, vendor string, r io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	doneSent := false

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}
			if currentEvent != "" {
				if !handleSSEEvent(ctx, currentEvent, []byte(data), vendor, &doneSent, ch) {
					return
				}
				currentEvent = ""
			}
			continue
		}

		// Empty lines are SSE delimiters, ignore them.
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		send(ctx, ch, provider.Event{
			Type: provider.EventError,
			Err:  api.NewProviderTransportError(vendor, err),
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

// handleSSEEvent processes a single SSE event and emits the corresponding
// provider event. It reports whether the consumer is still listening.
func handleSSEEvent(ctx context.Context, eventType string, data []byte, vendor string, doneSent *bool, ch chan<- provider.Event) bool {
	switch eventType {
	case eventTextDelta:
		var d deltaData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("skipping malformed text delta", "vendor", vendor, "error", err)
			return true
		}
		return send(ctx, ch, provider.Event{
			Type:  provider.EventTextDelta,
			Delta: d.Delta,
		})

	case eventReasoningTextDelta, eventReasoningSummaryDelta:
		var d deltaData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("skipping malformed reasoning delta", "vendor", vendor, "error", err)
			return true
		}
		return send(ctx, ch, provider.Event{
			Type:  provider.EventReasoningDelta,
			Delta: d.Delta,
		})

	case eventResponseCompleted, eventResponseDone, eventResponseIncomplete:
		if *doneSent {
			return true
		}
		*doneSent = true

		var d terminalData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("malformed terminal event, ending stream without usage",
				"vendor", vendor, "event", eventType, "error", err)
			return send(ctx, ch, provider.Event{
				Type:         provider.EventDone,
				FinishReason: api.FinishStop,
			})
		}

		ev := provider.Event{
			Type:         provider.EventDone,
			FinishReason: mapStatus(d.Response.Status, d.Response.IncompleteDetails),
		}
		if eventType == eventResponseIncomplete && d.Response.Status == "" {
			ev.FinishReason = mapStatus("incomplete", d.Response.IncompleteDetails)
		}
		if d.Response.Usage != nil {
			usage := translateUsage(d.Response.Usage)
			ev.Usage = &usage
		}
		return send(ctx, ch, ev)

	case eventResponseFailed:
		var d terminalData
		message := "backend response failed"
		if err := json.Unmarshal(data, &d); err == nil && d.Response.Error != nil {
			message = d.Response.Error.Message
		}
		return send(ctx, ch, provider.Event{
			Type: provider.EventError,
			Err:  api.NewProviderError(vendor, 0, "response_failed", message),
		})

	default:
		// Lifecycle events (response.created, output_item.added, content
		// part events) carry nothing the unified stream needs.
		return true
	}
}
