package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/debug"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// DefaultBaseURL is the production Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const vendorName = "gemini"

// Config holds configuration for the Gemini provider adapter.
type Config struct {
	// APIKey for Gemini authentication (sent as a query parameter).
	// Required.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout for non-streaming HTTP requests. Defaults to 120s.
	Timeout time.Duration
}

// Adapter implements provider.Provider for Gemini chat models.
type Adapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ provider.Provider = (*Adapter)(nil)

// New creates a new Gemini adapter with the given configuration.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: APIKey is required")
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

// Complete performs non-streaming inference via
// POST /models/{model}:generateContent.
func (a *Adapter) Complete(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	gr := translateRequest(req)

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.baseURL, url.PathEscape(req.Model), url.QueryEscape(a.apiKey))

	httpResp, err := a.post(ctx, endpoint, gr, false)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, a.mapHTTPError(httpResp)
	}

	var gResp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&gResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return translateResponse(req.Model, &gResp)
}

// Stream performs streaming inference via
// POST /models/{model}:streamGenerateContent?alt=sse. The returned channel
// is closed when the stream completes, errors, or the context is
// cancelled.
func (a *Adapter) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	gr := translateRequest(req)

	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s",
		a.baseURL, url.PathEscape(req.Model), url.QueryEscape(a.apiKey))

	httpResp, err := a.post(ctx, endpoint, gr, true)
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

func (a *Adapter) post(ctx context.Context, endpoint string, gr generateRequest, streaming bool) (*http.Response, error) {
	body, err := json.Marshal(gr)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	// The key travels in the query string; log the path only.
	path, _, _ := strings.Cut(endpoint, "?")
	debug.Log("providers", "request", "vendor", vendorName, "method", "POST",
		"url", path, "stream", streaming)
	if debug.TraceIsEnabled("providers") {
		debug.Raw("providers", string(body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
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
		return api.NewProviderError(vendorName, resp.StatusCode, errResp.Error.Status, errResp.Error.Message)
	}
	return api.NewProviderError(vendorName, resp.StatusCode, "",
		fmt.Sprintf("backend returned HTTP %d", resp.StatusCode))
}
