package api

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidRole reports whether r is one of the three supported roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single turn in the conversation. Ordering within a request
// is significant and preserved through translation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StopSequences holds the request's stop parameter. The wire format accepts
// either a single string or a list of strings; both decode into a slice.
type StopSequences []string

// UnmarshalJSON accepts both `"stop": "foo"` and `"stop": ["foo", "bar"]`.
func (s *StopSequences) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StopSequences{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings")
	}
	*s = StopSequences(many)
	return nil
}

// ChatRequest is the unified inference request. Optional numeric parameters
// are pointers so that "absent" is distinguishable from a zero value.
//
// A validated ChatRequest is treated as immutable: the constraint engine
// derives a copy and never writes through the original.
type ChatRequest struct {
	Model            string        `json:"model,omitempty"`
	Messages         []Message     `json:"messages"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	Stop             StopSequences `json:"stop,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
}

// Clone returns a deep copy of the request. Pointer parameters are
// re-allocated so the copy can be adjusted without touching the original.
func (r *ChatRequest) Clone() *ChatRequest {
	c := *r
	c.Messages = append([]Message(nil), r.Messages...)
	c.Stop = append(StopSequences(nil), r.Stop...)
	c.Temperature = clonePtr(r.Temperature)
	c.MaxTokens = clonePtr(r.MaxTokens)
	c.TopP = clonePtr(r.TopP)
	c.FrequencyPenalty = clonePtr(r.FrequencyPenalty)
	c.PresencePenalty = clonePtr(r.PresencePenalty)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// FinishReason is the normalized terminal classification of a completion.
// Every vendor's vocabulary is mapped onto exactly these values; a chunk in
// flight carries a nil *FinishReason (JSON null).
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// Usage holds normalized token accounting. Vendors report these under
// different field names (prompt/completion, input/output); adapters sum and
// rename into this shape.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one generated alternative in a non-streaming response.
type Choice struct {
	Index        int           `json:"index"`
	Message      Message       `json:"message"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// ChatResponse is the complete non-streaming response body.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ObjectChatCompletion is the Object value of a ChatResponse.
const ObjectChatCompletion = "chat.completion"

// ObjectChatChunk is the Object value of a ChatChunk.
const ObjectChatChunk = "chat.completion.chunk"

// Delta carries the incremental part of a streamed choice. Role is set on
// the first chunk of a stream only.
type Delta struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is one streamed alternative. FinishReason is null on every
// non-terminal chunk.
type ChunkChoice struct {
	Index        int           `json:"index"`
	Delta        Delta         `json:"delta"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// ChatChunk is a single streamed event. All chunks of one stream share ID
// and Created; exactly the terminal chunk carries Usage.
type ChatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// Terminal reports whether the chunk carries a finish reason, i.e. it is
// the last content-bearing chunk of its stream.
func (c *ChatChunk) Terminal() bool {
	for _, ch := range c.Choices {
		if ch.FinishReason != nil {
			return true
		}
	}
	return false
}

// FinishPtr returns a pointer to a copy of r, for populating the
// finish_reason fields above.
func FinishPtr(r FinishReason) *FinishReason {
	return &r
}
