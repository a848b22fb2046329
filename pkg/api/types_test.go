package api

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// roundTrip marshals v to JSON, then unmarshals back into a new value of the
// same type and returns it. It fails the test on any error.
func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var got T
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v\nJSON: %s", err, data)
	}
	return got
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestChatRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  ChatRequest
	}{
		{
			name: "minimal",
			req: ChatRequest{
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			},
		},
		{
			name: "all parameters",
			req: ChatRequest{
				Model: "gpt-4o",
				Messages: []Message{
					{Role: RoleSystem, Content: "be brief"},
					{Role: RoleUser, Content: "hello"},
					{Role: RoleAssistant, Content: "hello there"},
					{Role: RoleUser, Content: "bye"},
				},
				Temperature:      floatPtr(0.7),
				MaxTokens:        intPtr(256),
				TopP:             floatPtr(0.9),
				FrequencyPenalty: floatPtr(0.5),
				PresencePenalty:  floatPtr(-0.5),
				Stop:             StopSequences{"\n\n"},
				Stream:           true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.req)
			if !reflect.DeepEqual(got, tt.req) {
				t.Errorf("round-trip mismatch\n got: %+v\nwant: %+v", got, tt.req)
			}
		})
	}
}

func TestStopSequencesUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    StopSequences
		wantErr bool
	}{
		{name: "single string", json: `{"messages":[],"stop":"END"}`, want: StopSequences{"END"}},
		{name: "list", json: `{"messages":[],"stop":["a","b"]}`, want: StopSequences{"a", "b"}},
		{name: "empty list", json: `{"messages":[],"stop":[]}`, want: StopSequences{}},
		{name: "number rejected", json: `{"messages":[],"stop":42}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ChatRequest
			err := json.Unmarshal([]byte(tt.json), &req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if !reflect.DeepEqual(req.Stop, tt.want) {
				t.Errorf("Stop = %#v, want %#v", req.Stop, tt.want)
			}
		})
	}
}

func TestChatRequestClone(t *testing.T) {
	orig := &ChatRequest{
		Model:       "gpt-4o",
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: floatPtr(1.0),
		MaxTokens:   intPtr(100),
		Stop:        StopSequences{"END"},
	}

	clone := orig.Clone()

	// Mutating the clone must not write through to the original.
	*clone.Temperature = 0.0
	*clone.MaxTokens = 1
	clone.Messages[0].Content = "changed"
	clone.Stop[0] = "changed"
	clone.TopP = floatPtr(0.5)

	if *orig.Temperature != 1.0 {
		t.Errorf("original Temperature mutated: %v", *orig.Temperature)
	}
	if *orig.MaxTokens != 100 {
		t.Errorf("original MaxTokens mutated: %v", *orig.MaxTokens)
	}
	if orig.Messages[0].Content != "hi" {
		t.Errorf("original message mutated: %q", orig.Messages[0].Content)
	}
	if orig.Stop[0] != "END" {
		t.Errorf("original stop mutated: %q", orig.Stop[0])
	}
	if orig.TopP != nil {
		t.Error("original TopP set by clone mutation")
	}
}

func TestChunkFinishReasonJSON(t *testing.T) {
	// A non-terminal chunk must serialize finish_reason as explicit null,
	// not omit it.
	chunk := ChatChunk{
		ID:      "chatcmpl-abc",
		Object:  ObjectChatChunk,
		Created: 1700000000,
		Model:   "gpt-4o",
		Choices: []ChunkChoice{{Index: 0, Delta: Delta{Content: "hi"}}},
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if want := `"finish_reason":null`; !strings.Contains(string(data), want) {
		t.Errorf("chunk JSON missing %s: %s", want, data)
	}
	if strings.Contains(string(data), `"usage"`) {
		t.Errorf("non-terminal chunk must not carry usage: %s", data)
	}

	if chunk.Terminal() {
		t.Error("Terminal() = true for chunk without finish reason")
	}

	chunk.Choices[0].FinishReason = FinishPtr(FinishStop)
	if !chunk.Terminal() {
		t.Error("Terminal() = false for chunk with finish reason")
	}
}
