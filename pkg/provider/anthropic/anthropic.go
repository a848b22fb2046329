package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/debug"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// DefaultBaseURL is the production Anthropic API endpoint.
const DefaultBaseURL = "https://api.anthropic.com"

// apiVersion pins the Messages API behavior; required on every request.
const apiVersion = "2023-06-01"

const vendorName = "anthropic"

// Config holds configuration for the Anthropic provider adapter.
type Config struct {
	// APIKey for Anthropic authentication. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout for non-streaming HTTP requests. Defaults to 120s.
	Timeout time.Duration
}

// Adapter implements provider.Provider for Anthropic chat models.
type Adapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ provider.Provider = (*Adapter)(nil)

// New creates a new Anthropic adapter with the given configuration.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: APIKey is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Adapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return vendorName
}

// Complete performs non-streaming inference via POST /v1/messages.
func (a *Adapter) Complete(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	reqCopy := *req
	reqCopy.Stream = false
	mr := translateRequest(&reqCopy)

	httpResp, err := a.post(ctx, mr, false)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, a.mapHTTPError(httpResp)
	}

	var mResp messagesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&mResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return translateResponse(&mResp), nil
}

// Stream performs streaming inference via POST /v1/messages with
// stream=true. The returned channel is closed when the stream completes,
// errors, or the context is cancelled.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	reqCopy := *req
	reqCopy.Stream = true
	mr := translateRequest(&reqCopy)

	httpResp, err := a.post(ctx, mr, true)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, a.mapHTTPError(httpResp)
	}

	ch := make(chan provider.Event, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		parseSSEStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

// Close releases provider resources.
func (a *Adapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

func (a *Adapter) post(ctx context.Context, mr messagesRequest, streaming bool) (*http.Response, error) {
	body, err := json.Marshal(mr)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	debug.Log("providers", "request", "vendor", vendorName, "method", "POST",
		"url", a.baseURL+"/v1/messages", "model", mr.Model, "stream", streaming)
	if debug.TraceIsEnabled("providers") {
		debug.Raw("providers", string(body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	client := a.httpClient
	if streaming {
		// No fixed timeout for streams; the context controls the
		// request lifetime instead.
		client = &http.Client{Transport: a.httpClient.Transport}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, api.NewProviderTransportError(vendorName, err)
	}
	return httpResp, nil
}

// mapHTTPError converts a non-2xx response into a ProviderError carrying
// the backend's status and message verbatim.
func (a *Adapter) mapHTTPError(resp *http.Response) *api.ProviderError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return api.NewProviderError(vendorName, resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
	}
	return api.NewProviderError(vendorName, resp.StatusCode, "",
		fmt.Sprintf("backend returned HTTP %d", resp.StatusCode))
}
