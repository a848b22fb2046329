package gateway

import (
	"context"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/observability"
	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/usage"
)

// StreamEvent is one element of a routed stream: either an assembled chunk
// or a terminal error. After an error the channel closes without further
// chunks.
type StreamEvent struct {
	Chunk *api.ChatChunk
	Err   error
}

// RouteStream handles a streaming chat completion. Adapter events are
// assembled into unified chunks sharing one id and created timestamp; the
// terminal chunk carries the finish reason and any vendor-reported usage.
// Exactly one outcome event is reported when the stream ends, however it
// ends.
func (g *Gateway) RouteStream(ctx context.Context, req *api.ChatRequest, callerID string) (<-chan StreamEvent, error) {
	rt, err := g.prepare(req, callerID, true)
	if err != nil {
		return nil, err
	}

	vendor := string(rt.desc.Vendor)

	eventCh, err := rt.prov.Stream(ctx, rt.provReq)
	if err != nil {
		duration := time.Since(rt.start)
		observability.VendorRequestsTotal.WithLabelValues(vendor, rt.desc.ID, "error").Inc()
		observability.VendorLatency.WithLabelValues(vendor, rt.desc.ID).Observe(duration.Seconds())
		g.report(ctx, rt, duration, 0, statusFor(ctx), err)
		return nil, err
	}

	out := make(chan StreamEvent, 16)
	go g.consumeStream(ctx, rt, eventCh, out)
	return out, nil
}

// streamAssembler builds the chunk sequence for one stream. All chunks
// share id, created, and model; the assistant role appears on the first
// content delta only.
type streamAssembler struct {
	id       string
	created  int64
	model    string
	roleSent bool
}

func newStreamAssembler(model string) *streamAssembler {
	return &streamAssembler{
		id:      api.NewCompletionID(),
		created: time.Now().Unix(),
		model:   model,
	}
}

func (a *streamAssembler) chunk(choice api.ChunkChoice, u *api.Usage) *api.ChatChunk {
	return &api.ChatChunk{
		ID:      a.id,
		Object:  api.ObjectChatChunk,
		Created: a.created,
		Model:   a.model,
		Choices: []api.ChunkChoice{choice},
		Usage:   u,
	}
}

func (a *streamAssembler) textChunk(delta string) *api.ChatChunk {
	d := api.Delta{Content: delta}
	if !a.roleSent {
		d.Role = api.RoleAssistant
		a.roleSent = true
	}
	return a.chunk(api.ChunkChoice{Index: 0, Delta: d, FinishReason: nil}, nil)
}

// terminalChunk builds the final chunk. An empty finish reason means the
// vendor's reason had no normalized equivalent and serializes as null.
func (a *streamAssembler) terminalChunk(finish api.FinishReason, u *api.Usage) *api.ChatChunk {
	var fr *api.FinishReason
	if finish != "" {
		fr = api.FinishPtr(finish)
	}
	return a.chunk(api.ChunkChoice{Index: 0, Delta: api.Delta{}, FinishReason: fr}, u)
}

// consumeStream translates adapter events into chunks and reports the
// stream's outcome once, when it ends. Reasoning deltas are dropped: they
// are not part of the unified contract.
func (g *Gateway) consumeStream(ctx context.Context, rt *route, eventCh <-chan provider.Event, out chan<- StreamEvent) {
	defer close(out)

	asm := newStreamAssembler(rt.desc.ID)
	vendor := string(rt.desc.Vendor)

	var totalTokens int
	reported := false
	reportOnce := func(status usage.Status, err error) {
		if reported {
			return
		}
		reported = true
		duration := time.Since(rt.start)
		observability.VendorLatency.WithLabelValues(vendor, rt.desc.ID).Observe(duration.Seconds())
		if status == usage.StatusSuccess {
			observability.VendorRequestsTotal.WithLabelValues(vendor, rt.desc.ID, "success").Inc()
		} else {
			observability.VendorRequestsTotal.WithLabelValues(vendor, rt.desc.ID, "error").Inc()
		}
		g.report(ctx, rt, duration, totalTokens, status, err)
	}

	for {
		select {
		case <-ctx.Done():
			reportOnce(usage.StatusAborted, ctx.Err())
			return

		case ev, ok := <-eventCh:
			if !ok {
				// Adapter closed without a terminal event; treat as an
				// aborted stream.
				reportOnce(usage.StatusAborted, nil)
				return
			}

			switch ev.Type {
			case provider.EventTextDelta:
				if !send(ctx, out, StreamEvent{Chunk: asm.textChunk(ev.Delta)}) {
					reportOnce(usage.StatusAborted, ctx.Err())
					return
				}

			case provider.EventReasoningDelta:
				// Dropped.

			case provider.EventDone:
				if ev.Usage != nil {
					totalTokens = ev.Usage.TotalTokens
					observability.VendorTokensTotal.WithLabelValues(vendor, rt.desc.ID, "input").Add(float64(ev.Usage.PromptTokens))
					observability.VendorTokensTotal.WithLabelValues(vendor, rt.desc.ID, "output").Add(float64(ev.Usage.CompletionTokens))
				}
				send(ctx, out, StreamEvent{Chunk: asm.terminalChunk(ev.FinishReason, ev.Usage)})
				reportOnce(usage.StatusSuccess, nil)
				return

			case provider.EventError:
				send(ctx, out, StreamEvent{Err: ev.Err})
				reportOnce(statusFor(ctx), ev.Err)
				return
			}
		}
	}
}

// send delivers an event unless the context ends first.
func send(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
