package openaicompat

import "github.com/kanal-dev/kanal/pkg/provider"

// TranslateToChat converts a provider.Request into a ChatCompletionRequest
// for the /v1/chat/completions endpoint. The mapping is 1:1: roles and
// parameter names already match the Chat Completions format.
func TranslateToChat(req *provider.Request) ChatCompletionRequest {
	cr := ChatCompletionRequest{
		Model:            req.Model,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
		N:                1,
		Stream:           req.Stream,
	}

	// When streaming, ask the backend to report usage on the final chunk.
	if req.Stream {
		cr.StreamOptions = &ChatStreamOptions{
			IncludeUsage: true,
		}
	}

	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, ChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	return cr
}
