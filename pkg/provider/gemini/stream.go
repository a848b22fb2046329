package gemini

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

// parseSSEStream reads streamGenerateContent SSE events and sends unified
// events on ch. The channel is NOT closed by this function; the caller is
// responsible for closing it.
//
// Every event carries the same generateResponse shape. A candidate may
// hold zero or more text parts; each non-empty part becomes one text
// delta. A finishReason other than unspecified ends the stream with a
// separate Done event carrying the final usage.
func parseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)
	doneSent := false

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var resp generateResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			slog.Warn("skipping malformed SSE event",
				"vendor", "gemini",
				"error", err.Error(),
			)
			continue
		}

		if len(resp.Candidates) == 0 {
			continue
		}
		cand := resp.Candidates[0]

		for _, p := range cand.Content.Parts {
			if p.Text == "" {
				continue
			}
			if !send(ctx, ch, provider.Event{
				Type:  provider.EventTextDelta,
				Delta: p.Text,
			}) {
				return
			}
		}

		if terminalFinish(cand.FinishReason) && !doneSent {
			doneSent = true
			ev := provider.Event{
				Type:         provider.EventDone,
				FinishReason: mapFinishReason(cand.FinishReason),
			}
			if resp.UsageMetadata != nil {
				usage := translateUsage(resp.UsageMetadata)
				ev.Usage = &usage
			}
			send(ctx, ch, ev)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		send(ctx, ch, provider.Event{
			Type: provider.EventError,
			Err:  api.NewProviderTransportError("gemini", err),
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
