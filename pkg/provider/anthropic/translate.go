package anthropic

import (
	"log/slog"
	"strings"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// defaultMaxTokens is used when the request carries no max_tokens. The
// Messages API rejects requests without one.
const defaultMaxTokens = 4096

// translateRequest converts a unified request into the Messages wire
// format: system messages are newline-joined into the top-level system
// field, stop sequences move to stop_sequences, and max_tokens gets the
// required fallback.
func translateRequest(req *provider.Request) messagesRequest {
	mr := messagesRequest{
		Model:         req.Model,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}

	var systemParts []string
	for _, m := range req.Messages {
		if m.Role == api.RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		mr.Messages = append(mr.Messages, wireMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if len(systemParts) > 0 {
		mr.System = strings.Join(systemParts, "\n")
	}

	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		mr.MaxTokens = *req.MaxTokens
	} else {
		mr.MaxTokens = defaultMaxTokens
	}

	return mr
}

// translateResponse converts a non-streaming Messages response into the
// unified Result. The first text block is the answer.
func translateResponse(resp *messagesResponse) *provider.Result {
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return &provider.Result{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      text,
		FinishReason: mapStopReason(resp.StopReason),
		Usage:        translateUsage(resp.Usage),
	}
}

// mapStopReason converts a Messages stop_reason into the normalized
// finish vocabulary.
func mapStopReason(reason string) api.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence", "":
		return api.FinishStop
	case "max_tokens":
		return api.FinishLength
	case "refusal":
		return api.FinishContentFilter
	default:
		slog.Warn("unknown stop_reason from backend, treating as stop",
			"stop_reason", reason,
		)
		return api.FinishStop
	}
}

// translateUsage sums the separately reported input and output counts
// into the unified total.
func translateUsage(u wireUsage) api.Usage {
	return api.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.InputTokens + u.OutputTokens,
	}
}
