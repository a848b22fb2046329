package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// DefaultBaseURL is the production OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com"

const vendorName = "openai"

// Config holds configuration for the Responses API adapter.
type Config struct {
	// APIKey for OpenAI authentication. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout for non-streaming HTTP requests. Defaults to 120s.
	Timeout time.Duration
}

// Adapter implements provider.Provider for reasoning models behind the
// Responses API.
type Adapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ provider.Provider = (*Adapter)(nil)

// New creates a new Responses API adapter with the given configuration.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("responses: APIKey is required")
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
	return "openai-responses"
}

// Complete performs non-streaming inference via POST /v1/responses.
func (a *Adapter) Complete(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	reqCopy := *req
	reqCopy.Stream = false
	rr := translateRequest(&reqCopy)

	body, err := json.Marshal(rr)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := a.newRequest(ctx, body, false)
	if err != nil {
		return nil, err
	}

	slog.Debug("request", "debug", "providers", "method", "POST",
		"url", a.baseURL+"/v1/responses", "model", req.Model, "stream", false)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, api.NewProviderTransportError(vendorName, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, a.mapHTTPError(httpResp)
	}

	var rResp responsesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&rResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return translateResponse(vendorName, &rResp)
}

// Stream performs streaming inference via POST /v1/responses with
// stream=true. The returned channel is closed when the stream completes,
// errors, or the context is cancelled.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	reqCopy := *req
	reqCopy.Stream = true
	rr := translateRequest(&reqCopy)

	body, err := json.Marshal(rr)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := a.newRequest(ctx, body, true)
	if err != nil {
		return nil, err
	}

	slog.Debug("request", "debug", "providers", "method", "POST",
		"url", a.baseURL+"/v1/responses", "model", req.Model, "stream", true)

	// Use a client without timeout for streaming. The context controls
	// the request lifetime instead.
	streamClient := &http.Client{
		Transport: a.httpClient.Transport,
	}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, api.NewProviderTransportError(vendorName, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, a.mapHTTPError(httpResp)
	}

	ch := make(chan provider.Event, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		parseSSEStream(ctx, vendorName, httpResp.Body, ch)
	}()

	return ch, nil
}

// Close releases provider resources.
func (a *Adapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

func (a *Adapter) newRequest(ctx context.Context, body []byte, streaming bool) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

// mapHTTPError converts a non-2xx response into a ProviderError carrying
// the backend's status and message verbatim.
func (a *Adapter) mapHTTPError(resp *http.Response) *api.ProviderError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		Error responsesError `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return api.NewProviderError(vendorName, resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
	}
	return api.NewProviderError(vendorName, resp.StatusCode, "",
		fmt.Sprintf("backend returned HTTP %d", resp.StatusCode))
}
