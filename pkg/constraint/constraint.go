// Package constraint adjusts unified requests to each model's parameter
// legality rules.
//
// Vendors disagree about which sampling parameters a model accepts: some
// reject a parameter outright, some clamp it to a narrower range, some
// require a value the caller may omit. The engine applies a per-model rule
// table and produces a derived request; it never rejects one. Structural
// rejection is the router's job.
package constraint

import (
	"math"

	"github.com/kanal-dev/kanal/pkg/api"
)

// Param names a constrainable request parameter.
type Param string

const (
	ParamTemperature      Param = "temperature"
	ParamTopP             Param = "top_p"
	ParamMaxTokens        Param = "max_tokens"
	ParamFrequencyPenalty Param = "frequency_penalty"
	ParamPresencePenalty  Param = "presence_penalty"
)

// Constraint is the rule for one parameter of one model. All numeric fields
// use float64; max_tokens values are truncated back to int on write.
type Constraint struct {
	// Min and Max clamp the value when present.
	Min *float64
	Max *float64

	// Default is applied when the parameter is absent after the other
	// steps, and substitutes for a disallowed value.
	Default *float64

	// Disallowed lists values the model rejects outright.
	Disallowed []float64

	// Remove guarantees the parameter never reaches the vendor call,
	// regardless of caller input.
	Remove bool
}

// RuleSet holds the constraints for one model, keyed by parameter.
type RuleSet map[Param]Constraint

// Engine applies per-model rule sets to requests. Read-only after
// construction, safe for concurrent use.
type Engine struct {
	rules map[string]RuleSet
}

// NewEngine creates an Engine from a model-id keyed rule table.
func NewEngine(rules map[string]RuleSet) *Engine {
	return &Engine{rules: rules}
}

// DefaultRules returns the built-in rule table for the built-in registry.
//
// Reasoning-endpoint models accept no sampling knobs at all; the Messages
// API requires max_tokens, so those models carry a default; every model
// with a known completion ceiling clamps max_tokens to it.
func DefaultRules() map[string]RuleSet {
	noSampling := RuleSet{
		ParamTemperature:      {Remove: true},
		ParamTopP:             {Remove: true},
		ParamFrequencyPenalty: {Remove: true},
		ParamPresencePenalty:  {Remove: true},
	}

	return map[string]RuleSet{
		"o3":      noSampling,
		"o4-mini": noSampling,
		"gpt-4o": {
			ParamMaxTokens: {Max: f(16384)},
		},
		"gpt-4o-mini": {
			ParamMaxTokens: {Max: f(16384)},
		},
		"claude-sonnet-4": {
			ParamMaxTokens: {Max: f(64000), Default: f(4096)},
		},
		"claude-3-5-haiku": {
			ParamMaxTokens: {Max: f(8192), Default: f(4096)},
		},
		"gemini-2.0-flash": {
			ParamMaxTokens: {Max: f(8192)},
		},
		"gemini-1.5-pro": {
			ParamMaxTokens: {Max: f(8192)},
		},
	}
}

func f(v float64) *float64 { return &v }

// Apply produces a derived request with the model's rules applied. The
// input request is never mutated. Models absent from the rule table pass
// through unchanged. Applying twice reaches a fixed point after one pass.
func (e *Engine) Apply(req *api.ChatRequest, modelID string) *api.ChatRequest {
	rules, ok := e.rules[modelID]
	if !ok || len(rules) == 0 {
		return req
	}

	derived := req.Clone()
	for param, c := range rules {
		applyOne(derived, param, c)
	}
	return derived
}

// applyOne runs the constraint algorithm for a single parameter:
// remove, then disallowed-value substitution, then clamping, then default.
func applyOne(req *api.ChatRequest, param Param, c Constraint) {
	if c.Remove {
		clearParam(req, param)
		return
	}

	if v, ok := paramValue(req, param); ok && isDisallowed(v, c.Disallowed) {
		if c.Default != nil {
			setParam(req, param, *c.Default)
		} else {
			clearParam(req, param)
		}
	}

	if v, ok := paramValue(req, param); ok {
		clamped := v
		if c.Min != nil {
			clamped = math.Max(clamped, *c.Min)
		}
		if c.Max != nil {
			clamped = math.Min(clamped, *c.Max)
		}
		if clamped != v {
			setParam(req, param, clamped)
		}
		return
	}

	if c.Default != nil {
		setParam(req, param, *c.Default)
	}
}

func isDisallowed(v float64, disallowed []float64) bool {
	for _, d := range disallowed {
		if v == d {
			return true
		}
	}
	return false
}

// paramValue reads the current value of a parameter as float64. The second
// return is false when the parameter is absent.
func paramValue(req *api.ChatRequest, param Param) (float64, bool) {
	switch param {
	case ParamTemperature:
		if req.Temperature != nil {
			return *req.Temperature, true
		}
	case ParamTopP:
		if req.TopP != nil {
			return *req.TopP, true
		}
	case ParamMaxTokens:
		if req.MaxTokens != nil {
			return float64(*req.MaxTokens), true
		}
	case ParamFrequencyPenalty:
		if req.FrequencyPenalty != nil {
			return *req.FrequencyPenalty, true
		}
	case ParamPresencePenalty:
		if req.PresencePenalty != nil {
			return *req.PresencePenalty, true
		}
	}
	return 0, false
}

func setParam(req *api.ChatRequest, param Param, v float64) {
	switch param {
	case ParamTemperature:
		req.Temperature = &v
	case ParamTopP:
		req.TopP = &v
	case ParamMaxTokens:
		n := int(v)
		req.MaxTokens = &n
	case ParamFrequencyPenalty:
		req.FrequencyPenalty = &v
	case ParamPresencePenalty:
		req.PresencePenalty = &v
	}
}

func clearParam(req *api.ChatRequest, param Param) {
	switch param {
	case ParamTemperature:
		req.Temperature = nil
	case ParamTopP:
		req.TopP = nil
	case ParamMaxTokens:
		req.MaxTokens = nil
	case ParamFrequencyPenalty:
		req.FrequencyPenalty = nil
	case ParamPresencePenalty:
		req.PresencePenalty = nil
	}
}
