// Package anthropic implements a Provider adapter for the Anthropic
// Messages API (/v1/messages). It hoists system messages into the
// top-level system field, supplies the required max_tokens, and translates
// the named SSE event stream into unified events.
package anthropic

// --- Request types ---

// messagesRequest is the wire format for POST /v1/messages. The system
// prompt is a top-level string and max_tokens is required.
type messagesRequest struct {
	Model         string        `json:"model"`
	MaxTokens     int           `json:"max_tokens"`
	System        string        `json:"system,omitempty"`
	Messages      []wireMessage `json:"messages"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
}

// wireMessage is one entry in the messages list. Roles are user and
// assistant only; system lives at the top level.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---

// messagesResponse is returned by a non-streaming POST /v1/messages.
type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      wireUsage      `json:"usage"`
}

// contentBlock is one piece of the response. Only text blocks carry
// answer content.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// wireUsage holds token counts. The API reports input and output
// separately and never a total.
type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// errorResponse is the error envelope for non-2xx responses.
type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Streaming event types ---

// streamEvent is a wrapper for all named SSE event payloads. Every payload
// carries a "type" field matching the event name; only the fields relevant
// to that type are populated.
//
//	message_start       → Message (id, model, input token count)
//	content_block_delta → Delta.Text
//	message_delta       → Delta.StopReason + Usage (output tokens)
//	message_stop        → end of stream
type streamEvent struct {
	Type    string        `json:"type"`
	Message *eventMessage `json:"message,omitempty"`
	Delta   *eventDelta   `json:"delta,omitempty"`
	Usage   *wireUsage    `json:"usage,omitempty"`
	Error   *eventError   `json:"error,omitempty"`
}

// eventMessage is the message object inside a message_start event.
type eventMessage struct {
	ID    string    `json:"id"`
	Model string    `json:"model"`
	Usage wireUsage `json:"usage"`
}

// eventDelta carries a text fragment on content_block_delta and the stop
// reason on message_delta.
type eventDelta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// eventError is the payload of an error event.
type eventError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
