package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
	MaxStopEntries int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 10 * 1024 * 1024, // 10MB
		MaxStopEntries: 4,
	}
}

// ValidateRequest checks a ChatRequest for structural validity. It returns
// an *APIError describing the first validation failure, or nil if the
// request is valid. Validation happens before model resolution, so it never
// touches the network.
func ValidateRequest(req *ChatRequest, cfg ValidationConfig) *APIError {
	if len(req.Messages) == 0 {
		return NewValidationError("messages", "messages must contain at least one entry")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewValidationError("messages",
			fmt.Sprintf("messages exceeds maximum of %d entries", cfg.MaxMessages))
	}

	totalContent := 0
	for i, msg := range req.Messages {
		if !ValidRole(msg.Role) {
			return NewValidationError(
				fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("role must be one of system, user, assistant; got %q", msg.Role))
		}
		if msg.Content == "" {
			return NewValidationError(
				fmt.Sprintf("messages[%d].content", i),
				"content must not be empty")
		}
		totalContent += len(msg.Content)
	}

	if cfg.MaxContentSize > 0 && totalContent > cfg.MaxContentSize {
		return NewValidationError("messages",
			fmt.Sprintf("total message content exceeds maximum of %d bytes", cfg.MaxContentSize))
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewValidationError("max_tokens", "max_tokens must be positive")
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewValidationError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.TopP != nil {
		if *req.TopP < 0.0 || *req.TopP > 1.0 {
			return NewValidationError("top_p", "top_p must be between 0.0 and 1.0")
		}
	}

	if req.FrequencyPenalty != nil {
		if *req.FrequencyPenalty < -2.0 || *req.FrequencyPenalty > 2.0 {
			return NewValidationError("frequency_penalty", "frequency_penalty must be between -2.0 and 2.0")
		}
	}

	if req.PresencePenalty != nil {
		if *req.PresencePenalty < -2.0 || *req.PresencePenalty > 2.0 {
			return NewValidationError("presence_penalty", "presence_penalty must be between -2.0 and 2.0")
		}
	}

	if cfg.MaxStopEntries > 0 && len(req.Stop) > cfg.MaxStopEntries {
		return NewValidationError("stop",
			fmt.Sprintf("stop exceeds maximum of %d sequences", cfg.MaxStopEntries))
	}

	return nil
}
