package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kanal-dev/kanal/pkg/api"
)

// AsAPIError converts any handler error into an APIError for
// serialization. Provider errors keep the vendor's code and message
// verbatim; unknown errors become server errors.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var provErr *api.ProviderError
	if errors.As(err, &provErr) {
		return &api.APIError{
			Type:    api.ErrorTypeProvider,
			Code:    provErr.Code,
			Message: provErr.Message,
		}
	}
	return api.NewServerError(err.Error())
}

// HTTPStatusFromError maps a handler error to the HTTP status code of the
// error response. Provider errors pass the vendor's status through;
// network-level provider failures without a status become 502.
func HTTPStatusFromError(err error) int {
	var provErr *api.ProviderError
	if errors.As(err, &provErr) {
		if provErr.StatusCode != 0 {
			return provErr.StatusCode
		}
		return http.StatusBadGateway
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case api.ErrorTypeValidation:
			return http.StatusBadRequest
		case api.ErrorTypeUnsupportedModel:
			return http.StatusNotFound
		case api.ErrorTypeProvider:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}

	return http.StatusInternalServerError
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api. It sets the Content-Type header and writes
// the HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteError writes an error response, deriving both the body and the HTTP
// status code from the error.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorResponse(w, AsAPIError(err), HTTPStatusFromError(err))
}
