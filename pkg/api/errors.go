package api

import "fmt"

// ErrorType represents the category of a gateway error.
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation_error"
	ErrorTypeUnsupportedModel ErrorType = "unsupported_model"
	ErrorTypeProvider         ErrorType = "provider_error"
	ErrorTypeServerError      ErrorType = "server_error"
)

// APIError represents a structured gateway error with type, code, param,
// and message. Validation and model-resolution errors are raised before any
// network call is made.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error response body.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewValidationError creates an APIError for a malformed ChatRequest.
func NewValidationError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Param:   param,
		Message: message,
	}
}

// NewUnsupportedModelError creates an APIError for a model id absent from
// the registry.
func NewUnsupportedModelError(model string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnsupportedModel,
		Code:    "model_not_found",
		Param:   "model",
		Message: fmt.Sprintf("model %q is not supported", model),
	}
}

// NewServerError creates an APIError for internal gateway failures.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// ProviderError represents an upstream vendor transport, HTTP, or SDK
// failure. The vendor's status code and message are carried verbatim so
// callers see exactly what the vendor reported. Provider errors are never
// retried inside the gateway.
type ProviderError struct {
	Vendor     string `json:"vendor"`
	StatusCode int    `json:"status_code,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s upstream error (status %d): %s", e.Vendor, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s upstream error: %s", e.Vendor, e.Message)
}

// NewProviderError creates a ProviderError for a vendor HTTP failure.
func NewProviderError(vendor string, status int, code, message string) *ProviderError {
	return &ProviderError{
		Vendor:     vendor,
		StatusCode: status,
		Code:       code,
		Message:    message,
	}
}

// NewProviderTransportError creates a ProviderError for a network-level
// failure that never produced an HTTP status.
func NewProviderTransportError(vendor string, err error) *ProviderError {
	return &ProviderError{
		Vendor:  vendor,
		Message: err.Error(),
	}
}
