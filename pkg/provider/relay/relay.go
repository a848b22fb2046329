package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/provider/openaicompat"
)

// Config holds configuration for the relay provider adapter.
type Config struct {
	// BaseURL is the relay endpoint (e.g., "http://localhost:4000").
	// Required.
	BaseURL string

	// APIKey for relay authentication (optional).
	APIKey string

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration

	// ModelMapping maps requested model names to relay model identifiers.
	// For example: {"gpt-4o": "openai/gpt-4o"}. A model not in the map is
	// passed through unchanged.
	ModelMapping map[string]string
}

// Adapter implements provider.Provider for OpenAI-compatible relays.
type Adapter struct {
	client *openaicompat.Client
}

var (
	_ provider.Provider    = (*Adapter)(nil)
	_ provider.ModelLister = (*Adapter)(nil)
)

// New creates a new relay adapter with the given configuration.
func New(cfg Config) (*Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("relay: BaseURL is required")
	}

	client := openaicompat.NewClient("relay", cfg.BaseURL, cfg.APIKey, cfg.Timeout)

	if len(cfg.ModelMapping) > 0 {
		mapping := cfg.ModelMapping
		client.ModelMapper = func(model string) string {
			if mapped, ok := mapping[model]; ok {
				return mapped
			}
			return model
		}
	}

	return &Adapter{client: client}, nil
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return "relay"
}

// Complete performs non-streaming inference against the relay's Chat
// Completions endpoint.
func (a *Adapter) Complete(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	return a.client.Complete(ctx, req)
}

// Stream performs streaming inference against the relay's Chat
// Completions endpoint. The returned channel is closed when the stream
// completes, errors, or the context is cancelled.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	return a.client.Stream(ctx, req)
}

// ListModels returns the models advertised by the relay's /v1/models
// endpoint.
func (a *Adapter) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	chatModels, err := a.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	models := make([]provider.ModelInfo, 0, len(chatModels))
	for _, m := range chatModels {
		models = append(models, provider.ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

// Close releases provider resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}
