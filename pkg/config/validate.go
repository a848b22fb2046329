package config

import (
	"errors"
	"fmt"
)

// validConstraintParams are the parameter names the constraint engine knows.
var validConstraintParams = map[string]bool{
	"temperature":       true,
	"top_p":             true,
	"max_tokens":        true,
	"frequency_penalty": true,
	"presence_penalty":  true,
}

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Usage.Sink {
	case "log", "postgres", "none":
		// valid
	default:
		errs = append(errs, fmt.Errorf("usage.sink must be \"log\", \"postgres\", or \"none\", got %q", c.Usage.Sink))
	}

	if c.Usage.Sink == "postgres" {
		if c.Usage.Postgres.DSN == "" && c.Usage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("usage.postgres.dsn or usage.postgres.dsn_file is required when usage.sink is \"postgres\""))
		}
	}

	for i, m := range c.Models {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("models[%d].id is required", i))
		}
		switch m.Vendor {
		case "openai", "anthropic", "gemini", "relay":
			// valid
		default:
			errs = append(errs, fmt.Errorf("models[%d].vendor must be one of openai, anthropic, gemini, relay; got %q", i, m.Vendor))
		}
		switch m.Endpoint {
		case "", "standard", "reasoning":
			// valid
		default:
			errs = append(errs, fmt.Errorf("models[%d].endpoint must be \"standard\" or \"reasoning\", got %q", i, m.Endpoint))
		}
	}

	for model, rules := range c.Constraints {
		for param := range rules {
			if !validConstraintParams[param] {
				errs = append(errs, fmt.Errorf("constraints.%s: unknown parameter %q", model, param))
			}
		}
	}

	return errors.Join(errs...)
}
