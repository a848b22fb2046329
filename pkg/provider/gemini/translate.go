package gemini

import (
	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/provider"
)

// translateRequest converts a unified request into the generateContent
// wire format: system messages concatenate into systemInstruction, the
// assistant role becomes model, and parameters move into
// generationConfig.
func translateRequest(req *provider.Request) generateRequest {
	gr := generateRequest{}

	for _, m := range req.Messages {
		if m.Role == api.RoleSystem {
			if gr.SystemInstruction == nil {
				gr.SystemInstruction = &content{}
			}
			gr.SystemInstruction.Parts = append(gr.SystemInstruction.Parts, part{Text: m.Content})
			continue
		}

		role := string(m.Role)
		if m.Role == api.RoleAssistant {
			role = "model"
		}
		gr.Contents = append(gr.Contents, content{
			Role:  role,
			Parts: []part{{Text: m.Content}},
		})
	}

	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		gr.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}

	return gr
}

// translateResponse converts a non-streaming generateContent result into
// the unified Result. The concatenated text parts of the first candidate
// are the answer; the API issues no response id.
func translateResponse(model string, resp *generateResponse) (*provider.Result, error) {
	if len(resp.Candidates) == 0 {
		return nil, api.NewProviderError("gemini", 0, "empty_response", "backend produced no candidates")
	}

	cand := resp.Candidates[0]

	var text string
	for _, p := range cand.Content.Parts {
		text += p.Text
	}

	finish := mapFinishReason(cand.FinishReason)
	if finish == "" {
		finish = api.FinishStop
	}

	result := &provider.Result{
		Model:        model,
		Content:      text,
		FinishReason: finish,
	}

	if resp.UsageMetadata != nil {
		result.Usage = translateUsage(resp.UsageMetadata)
	}

	return result, nil
}

// mapFinishReason converts a generateContent finishReason into the
// normalized vocabulary. Reasons outside the mappable set (RECITATION,
// OTHER) return the empty string, which surfaces as a null finish reason
// on the wire.
func mapFinishReason(reason string) api.FinishReason {
	switch reason {
	case "STOP":
		return api.FinishStop
	case "MAX_TOKENS":
		return api.FinishLength
	case "SAFETY":
		return api.FinishContentFilter
	default:
		return ""
	}
}

// terminalFinish reports whether the candidate's finishReason ends the
// stream.
func terminalFinish(reason string) bool {
	return reason != "" && reason != "FINISH_REASON_UNSPECIFIED"
}

func translateUsage(u *usageMetadata) api.Usage {
	total := u.TotalTokenCount
	if total == 0 {
		total = u.PromptTokenCount + u.CandidatesTokenCount
	}
	return api.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      total,
	}
}
