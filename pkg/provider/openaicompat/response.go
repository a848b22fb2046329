package openaicompat

import (
	"log/slog"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// TranslateResponse converts a ChatCompletionResponse into a unified
// Result. It uses only choices[0] and maps content, finish reason, and
// usage. The vendor argument labels the error when the backend produced no
// choices.
func TranslateResponse(vendor string, resp *ChatCompletionResponse) (*provider.Result, error) {
	if len(resp.Choices) == 0 {
		return nil, api.NewProviderError(vendor, 0, "empty_response", "backend produced no choices")
	}

	choice := resp.Choices[0]

	result := &provider.Result{
		ID:           resp.ID,
		Model:        resp.Model,
		FinishReason: MapFinishReason(choice.FinishReason),
	}

	if choice.Message.Content != nil {
		result.Content = *choice.Message.Content
	}

	if resp.Usage != nil {
		result.Usage = translateUsage(resp.Usage)
	}

	return result, nil
}

// MapFinishReason converts a Chat Completions finish_reason string to the
// normalized vocabulary.
func MapFinishReason(reason string) api.FinishReason {
	switch reason {
	case "stop", "":
		return api.FinishStop
	case "length":
		return api.FinishLength
	case "content_filter":
		return api.FinishContentFilter
	default:
		slog.Warn("unknown finish_reason from backend, treating as stop",
			"finish_reason", reason,
		)
		return api.FinishStop
	}
}

// translateUsage renames the Chat Completions token fields into the
// unified Usage shape, recomputing the total when the backend omitted it.
func translateUsage(u *ChatUsage) api.Usage {
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return api.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      total,
	}
}
