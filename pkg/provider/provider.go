package provider

import "context"

// Provider abstracts one upstream vendor family. The interface is
// protocol-agnostic: each adapter handles its own backend wire format
// internally.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the vendor identifier (e.g., "openai", "anthropic").
	Name() string

	// Complete performs non-streaming inference and returns the vendor's
	// complete answer translated into the unified Result. Any transport,
	// HTTP, or decoding failure surfaces as *api.ProviderError.
	Complete(ctx context.Context, req *Request) (*Result, error)

	// Stream performs streaming inference. The returned channel receives
	// Event values and is closed by the provider when the stream
	// completes, errors, or the context is cancelled. The stream is
	// finite and not restartable.
	Stream(ctx context.Context, req *Request) (<-chan Event, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// ModelInfo describes one model a provider advertises.
type ModelInfo struct {
	ID      string
	OwnedBy string
}

// ModelLister is an optional interface for providers that can enumerate
// the models available behind them, such as a relay fronting several
// backends. The gateway merges advertised models into its model listing.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
