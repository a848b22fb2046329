package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/provider/openaicompat"
)

// DefaultBaseURL is the production OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com"

// Config holds configuration for the OpenAI provider adapter.
type Config struct {
	// APIKey for OpenAI authentication. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to DefaultBaseURL.
	// Useful for tests and regional proxies.
	BaseURL string

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration
}

// Adapter implements provider.Provider for OpenAI chat models.
type Adapter struct {
	client *openaicompat.Client
}

var _ provider.Provider = (*Adapter)(nil)

// New creates a new OpenAI adapter with the given configuration.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: APIKey is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	return &Adapter{
		client: openaicompat.NewClient("openai", cfg.BaseURL, cfg.APIKey, cfg.Timeout),
	}, nil
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return "openai"
}

// Complete performs non-streaming inference against the Chat Completions
// endpoint.
func (a *Adapter) Complete(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	return a.client.Complete(ctx, req)
}

// Stream performs streaming inference against the Chat Completions
// endpoint. The returned channel is closed when the stream completes,
// errors, or the context is cancelled.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	return a.client.Stream(ctx, req)
}

// Close releases provider resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}
