package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanal-dev/kanal/pkg/api"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func baseRequest() *api.ChatRequest {
	return &api.ChatRequest{
		Model:    "test-model",
		Messages: []api.Message{{Role: api.RoleUser, Content: "hi"}},
	}
}

func TestApplyRemove(t *testing.T) {
	engine := NewEngine(map[string]RuleSet{
		"test-model": {
			ParamTemperature: {Remove: true},
			ParamTopP:        {Remove: true},
		},
	})

	// Remove must win regardless of the input value.
	for _, temp := range []*float64{nil, floatPtr(0.0), floatPtr(0.7), floatPtr(2.0)} {
		req := baseRequest()
		req.Temperature = temp
		req.TopP = floatPtr(0.9)

		derived := engine.Apply(req, "test-model")
		assert.Nil(t, derived.Temperature, "temperature must be removed")
		assert.Nil(t, derived.TopP, "top_p must be removed")
	}
}

func TestApplyDisallowedValue(t *testing.T) {
	engine := NewEngine(map[string]RuleSet{
		"test-model": {
			ParamTemperature: {Disallowed: []float64{0}, Default: floatPtr(1.0)},
			ParamTopP:        {Disallowed: []float64{0}},
		},
	})

	req := baseRequest()
	req.Temperature = floatPtr(0)
	req.TopP = floatPtr(0)

	derived := engine.Apply(req, "test-model")

	// Disallowed with a default substitutes; without one, deletes.
	require.NotNil(t, derived.Temperature)
	assert.Equal(t, 1.0, *derived.Temperature)
	assert.Nil(t, derived.TopP)
}

func TestApplyClamp(t *testing.T) {
	engine := NewEngine(map[string]RuleSet{
		"test-model": {
			ParamTemperature: {Min: floatPtr(0.2), Max: floatPtr(1.5)},
			ParamMaxTokens:   {Max: floatPtr(4096)},
		},
	})

	tests := []struct {
		name     string
		temp     float64
		wantTemp float64
	}{
		{name: "below min", temp: 0.0, wantTemp: 0.2},
		{name: "in range", temp: 1.0, wantTemp: 1.0},
		{name: "above max", temp: 2.0, wantTemp: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			req.Temperature = floatPtr(tt.temp)
			req.MaxTokens = intPtr(100000)

			derived := engine.Apply(req, "test-model")
			require.NotNil(t, derived.Temperature)
			assert.Equal(t, tt.wantTemp, *derived.Temperature)
			require.NotNil(t, derived.MaxTokens)
			assert.Equal(t, 4096, *derived.MaxTokens)
		})
	}
}

func TestApplyDefault(t *testing.T) {
	engine := NewEngine(map[string]RuleSet{
		"test-model": {
			ParamMaxTokens: {Default: floatPtr(1024)},
		},
	})

	// Absent parameter picks up the default.
	derived := engine.Apply(baseRequest(), "test-model")
	require.NotNil(t, derived.MaxTokens)
	assert.Equal(t, 1024, *derived.MaxTokens)

	// Present parameter is left alone.
	req := baseRequest()
	req.MaxTokens = intPtr(50)
	derived = engine.Apply(req, "test-model")
	require.NotNil(t, derived.MaxTokens)
	assert.Equal(t, 50, *derived.MaxTokens)
}

func TestApplyUnknownModelPassesThrough(t *testing.T) {
	engine := NewEngine(DefaultRules())

	req := baseRequest()
	req.Temperature = floatPtr(0.7)

	derived := engine.Apply(req, "unconstrained-model")
	assert.Equal(t, req, derived)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	engine := NewEngine(map[string]RuleSet{
		"test-model": {
			ParamTemperature: {Remove: true},
			ParamMaxTokens:   {Max: floatPtr(100)},
		},
	})

	req := baseRequest()
	req.Temperature = floatPtr(1.5)
	req.MaxTokens = intPtr(5000)

	_ = engine.Apply(req, "test-model")

	require.NotNil(t, req.Temperature)
	assert.Equal(t, 1.5, *req.Temperature)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 5000, *req.MaxTokens)
}

func TestApplyIdempotent(t *testing.T) {
	engine := NewEngine(DefaultRules())

	req := baseRequest()
	req.Temperature = floatPtr(1.9)
	req.TopP = floatPtr(0.95)
	req.MaxTokens = intPtr(999999)
	req.PresencePenalty = floatPtr(1.0)

	for _, model := range []string{"o3", "gpt-4o", "claude-sonnet-4", "gemini-2.0-flash", "unlisted"} {
		once := engine.Apply(req, model)
		twice := engine.Apply(once, model)
		assert.Equal(t, once, twice, "Apply not idempotent for %s", model)
	}
}

func TestDefaultRulesReasoningModels(t *testing.T) {
	engine := NewEngine(DefaultRules())

	req := baseRequest()
	req.Temperature = floatPtr(0.7)
	req.TopP = floatPtr(0.9)
	req.FrequencyPenalty = floatPtr(0.1)
	req.PresencePenalty = floatPtr(0.1)
	req.MaxTokens = intPtr(2048)

	derived := engine.Apply(req, "o3")

	// Reasoning models accept no sampling knobs; max_tokens survives.
	assert.Nil(t, derived.Temperature)
	assert.Nil(t, derived.TopP)
	assert.Nil(t, derived.FrequencyPenalty)
	assert.Nil(t, derived.PresencePenalty)
	require.NotNil(t, derived.MaxTokens)
	assert.Equal(t, 2048, *derived.MaxTokens)
}

func TestDefaultRulesAnthropicMaxTokens(t *testing.T) {
	engine := NewEngine(DefaultRules())

	// The Messages API requires max_tokens; the rule table supplies one.
	derived := engine.Apply(baseRequest(), "claude-sonnet-4")
	require.NotNil(t, derived.MaxTokens)
	assert.Equal(t, 4096, *derived.MaxTokens)

	// Caller values above the ceiling clamp down.
	req := baseRequest()
	req.MaxTokens = intPtr(1000000)
	derived = engine.Apply(req, "claude-3-5-haiku")
	require.NotNil(t, derived.MaxTokens)
	assert.Equal(t, 8192, *derived.MaxTokens)
}
