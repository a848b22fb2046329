// Package responses implements a Provider adapter for reasoning models
// served through the OpenAI Responses API (/v1/responses). It collapses the
// unified message list into the Responses input format and consumes native
// SSE events.
package responses

// --- Request types ---

// responsesRequest is the wire format for POST /v1/responses.
type responsesRequest struct {
	Model           string          `json:"model"`
	Input           []inputMessage  `json:"input"`
	Store           bool            `json:"store"`
	Stream          bool            `json:"stream,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Reasoning       reasoningConfig `json:"reasoning"`
}

// inputMessage is one entry in the ordered input list.
type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// reasoningConfig controls reasoning behavior. The effort level is fixed;
// the unified contract exposes no reasoning parameters.
type reasoningConfig struct {
	Effort string `json:"effort"`
}

// --- Response types ---

// responsesResponse is the wire format returned by POST /v1/responses
// (non-streaming) and embedded in terminal SSE events.
type responsesResponse struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"`
	CreatedAt         int64              `json:"created_at"`
	Status            string             `json:"status"`
	Model             string             `json:"model"`
	Output            []responsesItem    `json:"output"`
	Usage             *responsesUsage    `json:"usage,omitempty"`
	IncompleteDetails *incompleteDetails `json:"incomplete_details,omitempty"`
	Error             *responsesError    `json:"error,omitempty"`
}

// responsesItem represents an output item. Reasoning models interleave
// "reasoning" items with "message" items; only messages carry answer text.
type responsesItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"` // "message", "reasoning"
	Status  string        `json:"status,omitempty"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

// contentPart is a content part within a message item.
type contentPart struct {
	Type string `json:"type"` // "output_text"
	Text string `json:"text,omitempty"`
}

// responsesUsage holds token usage from the backend.
type responsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// incompleteDetails explains why a response stopped early.
type incompleteDetails struct {
	Reason string `json:"reason"` // "max_output_tokens", "content_filter"
}

// responsesError is the error format in Responses API responses.
type responsesError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// --- SSE event types ---

// SSE event type strings from the Responses API. Backends differ in which
// terminal tag they emit; all three terminal forms carry the full response.
const (
	eventTextDelta             = "response.output_text.delta"
	eventReasoningTextDelta    = "response.reasoning_text.delta"
	eventReasoningSummaryDelta = "response.reasoning_summary_text.delta"
	eventResponseCompleted     = "response.completed"
	eventResponseDone          = "response.done"
	eventResponseIncomplete    = "response.incomplete"
	eventResponseFailed        = "response.failed"
)

// deltaData is the payload for delta events.
type deltaData struct {
	Delta string `json:"delta"`
}

// terminalData wraps the full response in a terminal event.
type terminalData struct {
	Response responsesResponse `json:"response"`
}
