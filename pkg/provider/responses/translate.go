package responses

import (
	"log/slog"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// reasoningEffort is sent on every request. The unified contract exposes no
// reasoning parameters, so the effort level is fixed.
const reasoningEffort = "medium"

// translateRequest collapses the unified message list into the ordered
// Responses input list. Reasoning endpoints reject the system role, so
// system messages are remapped to user while keeping their position.
func translateRequest(req *provider.Request) responsesRequest {
	rr := responsesRequest{
		Model:           req.Model,
		Store:           false,
		Stream:          req.Stream,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		Reasoning:       reasoningConfig{Effort: reasoningEffort},
	}

	for _, m := range req.Messages {
		role := string(m.Role)
		if m.Role == api.RoleSystem {
			role = string(api.RoleUser)
		}
		rr.Input = append(rr.Input, inputMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	return rr
}

// translateResponse converts a non-streaming Responses API result into the
// unified Result. The first output_text part of the first message item is
// the answer; reasoning items are skipped.
func translateResponse(vendor string, resp *responsesResponse) (*provider.Result, error) {
	if resp.Error != nil {
		return nil, api.NewProviderError(vendor, 0, resp.Error.Type, resp.Error.Message)
	}

	result := &provider.Result{
		ID:           resp.ID,
		Model:        resp.Model,
		FinishReason: mapStatus(resp.Status, resp.IncompleteDetails),
	}

	result.Content = firstMessageText(resp.Output)

	if resp.Usage != nil {
		result.Usage = translateUsage(resp.Usage)
	}

	return result, nil
}

// firstMessageText walks the typed output list and returns the first
// output_text content of the first message item.
func firstMessageText(items []responsesItem) string {
	for _, item := range items {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				return part.Text
			}
		}
	}
	return ""
}

// mapStatus converts the response status into the normalized finish
// vocabulary. An incomplete response stopped either at the token limit or
// at a content filter.
func mapStatus(status string, details *incompleteDetails) api.FinishReason {
	switch status {
	case "completed", "":
		return api.FinishStop
	case "incomplete":
		if details != nil && details.Reason == "content_filter" {
			return api.FinishContentFilter
		}
		return api.FinishLength
	default:
		slog.Warn("unknown response status from backend, treating as stop",
			"status", status,
		)
		return api.FinishStop
	}
}

// translateUsage converts the input/output token fields into the unified
// Usage shape, recomputing the total when the backend omitted it.
func translateUsage(u *responsesUsage) api.Usage {
	total := u.TotalTokens
	if total == 0 {
		total = u.InputTokens + u.OutputTokens
	}
	return api.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      total,
	}
}
