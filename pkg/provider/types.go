package provider

import "github.com/kanal-dev/kanal/pkg/api"

// Request is the vendor-facing request. It is derived from a validated,
// constraint-adjusted ChatRequest: the model is already the vendor wire id,
// stop sequences are normalized to a list, and absent parameters are nil.
type Request struct {
	Model            string
	Messages         []api.Message
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string
	Stream           bool
}

// Result is the vendor's complete non-streaming answer in unified form.
// ID may be empty when the vendor issues none; the router assigns one.
type Result struct {
	ID           string
	Model        string
	Content      string
	FinishReason api.FinishReason
	Usage        api.Usage
}

// EventType classifies a streaming event from a vendor backend.
type EventType int

const (
	// EventTextDelta carries an incremental fragment of output text.
	EventTextDelta EventType = iota

	// EventReasoningDelta carries intermediate thinking text. Reasoning
	// is not part of the unified contract; the router drops these.
	EventReasoningDelta

	// EventDone signals the end of the stream. It carries the finish
	// reason and, when the vendor reported it, final usage.
	EventDone

	// EventError signals a mid-stream vendor failure. The stream ends
	// after this event.
	EventError
)

// Event is a single streaming event from a vendor backend. An adapter maps
// each vendor wire event to zero or one Event.
type Event struct {
	// Type indicates what kind of event this is.
	Type EventType

	// Delta contains incremental text for TextDelta and ReasoningDelta.
	Delta string

	// FinishReason is populated on Done events.
	FinishReason api.FinishReason

	// Usage is populated on the Done event when the vendor reported
	// token counts.
	Usage *api.Usage

	// Err is populated on Error events.
	Err error
}

// StopList converts the unified stop field into the plain list most
// vendors expect. Returns nil for an empty field so adapters can rely on
// omitempty.
func StopList(stop api.StopSequences) []string {
	if len(stop) == 0 {
		return nil
	}
	return append([]string(nil), stop...)
}
