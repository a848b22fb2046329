package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kanal-dev/kanal/pkg/api"
)

// MapHTTPError converts an HTTP response with a non-2xx status code into a
// ProviderError carrying the vendor's status and message verbatim.
func MapHTTPError(vendor string, resp *http.Response) *api.ProviderError {
	message, code := ExtractErrorDetail(resp.Body)
	if message == "" {
		message = fmt.Sprintf("backend returned HTTP %d", resp.StatusCode)
	}
	return api.NewProviderError(vendor, resp.StatusCode, code, message)
}

// MapNetworkError converts a network-level error (connection refused,
// timeout, DNS resolution failure) into a ProviderError without a status.
func MapNetworkError(vendor string, err error) *api.ProviderError {
	return api.NewProviderTransportError(vendor, err)
}

// ExtractErrorDetail tries to parse the response body as a
// ChatErrorResponse and returns the error message and code if found.
func ExtractErrorDetail(body io.Reader) (message, code string) {
	if body == nil {
		return "", ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "", ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return "", ""
	}

	if c, ok := errResp.Error.Code.(string); ok {
		code = c
	}
	return errResp.Error.Message, code
}
