package gateway

import (
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/registry"
)

// buildProviderRequest derives the vendor-facing request from a validated,
// constraint-adjusted chat request. The model is replaced by its wire id;
// everything else passes through.
func buildProviderRequest(req *api.ChatRequest, desc registry.Descriptor, stream bool) *provider.Request {
	return &provider.Request{
		Model:            desc.WireID,
		Messages:         req.Messages,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             provider.StopList(req.Stop),
		Stream:           stream,
	}
}

// buildResponse assembles the unified response body from an adapter result.
// The gateway always issues its own response id; vendor ids never leak, and
// the model echoes the caller-facing id rather than the wire id.
func buildResponse(rt *route, result *provider.Result) *api.ChatResponse {
	finish := result.FinishReason
	if finish == "" {
		finish = api.FinishStop
	}
	return &api.ChatResponse{
		ID:      api.NewCompletionID(),
		Object:  api.ObjectChatCompletion,
		Created: time.Now().Unix(),
		Model:   rt.desc.ID,
		Choices: []api.Choice{{
			Index: 0,
			Message: api.Message{
				Role:    api.RoleAssistant,
				Content: result.Content,
			},
			FinishReason: api.FinishPtr(finish),
		}},
		Usage: result.Usage,
	}
}
