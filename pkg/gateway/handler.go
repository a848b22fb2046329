package gateway

import (
	"context"
	"log/slog"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/transport"
)

// Ensure Gateway implements the transport contracts at compile time.
var (
	_ transport.CompletionHandler = (*Gateway)(nil)
	_ transport.ModelLister       = (*Gateway)(nil)
)

// HandleCompletion implements transport.CompletionHandler. The caller
// identity is taken from the context; routing errors raised before any
// chunk was written are returned for the transport to serialize, while a
// mid-stream failure is written as an in-band error frame.
func (g *Gateway) HandleCompletion(ctx context.Context, req *api.ChatRequest, w transport.ResponseWriter) error {
	callerID := transport.CallerIDFromContext(ctx)

	if !req.Stream {
		resp, err := g.Route(ctx, req, callerID)
		if err != nil {
			return err
		}
		return w.WriteResponse(ctx, resp)
	}

	ch, err := g.RouteStream(ctx, req, callerID)
	if err != nil {
		return err
	}

	started := false
	for ev := range ch {
		if ev.Err != nil {
			if !started {
				// Nothing sent yet; let the transport serialize a
				// regular error response with the right status.
				return ev.Err
			}
			return w.WriteStreamError(ctx, transport.AsAPIError(ev.Err))
		}
		started = true
		if err := w.WriteChunk(ctx, ev.Chunk); err != nil {
			// Client gone; the routed stream drains via context
			// cancellation in the HTTP adapter.
			return err
		}
	}
	return nil
}

// ListModels implements transport.ModelLister from the registry table.
// Providers that advertise their own models, such as a relay fronting
// several backends, are queried as well; their models are appended after
// the registry's, deduplicated by id. A provider that fails to answer is
// skipped so the listing degrades to the registry view.
func (g *Gateway) ListModels(ctx context.Context) ([]transport.ModelInfo, error) {
	descs := g.registry.List()
	models := make([]transport.ModelInfo, 0, len(descs))
	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		models = append(models, transport.ModelInfo{
			ID:      d.ID,
			Object:  "model",
			OwnedBy: string(d.Vendor),
		})
		seen[d.ID] = true
	}

	for family, prov := range g.providers {
		lister, ok := prov.(provider.ModelLister)
		if !ok {
			continue
		}
		advertised, err := lister.ListModels(ctx)
		if err != nil {
			slog.Warn("skipping unreachable model lister",
				"family", string(family),
				"error", err.Error(),
			)
			continue
		}
		for _, m := range advertised {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			models = append(models, transport.ModelInfo{
				ID:      m.ID,
				Object:  "model",
				OwnedBy: m.OwnedBy,
			})
		}
	}
	return models, nil
}
