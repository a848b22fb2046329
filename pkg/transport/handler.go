package transport

import (
	"context"

	"github.com/kanal-dev/kanal/pkg/api"
)

// CompletionHandler handles the core chat completion operation. The
// implementation receives a decoded request and writes the result
// (streaming chunks or a complete response) to the ResponseWriter. The
// caller identity, when present, travels in the context.
type CompletionHandler interface {
	HandleCompletion(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error
}

// CompletionHandlerFunc is an adapter that allows using an ordinary
// function as a CompletionHandler.
type CompletionHandlerFunc func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error

// HandleCompletion calls f(ctx, req, w).
func (f CompletionHandlerFunc) HandleCompletion(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ModelInfo is one entry of the model listing endpoint.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the response body of the model listing endpoint.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ModelLister serves the model listing endpoint.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ResponseWriter abstracts streaming and non-streaming output for the
// handler. The transport layer creates a ResponseWriter for each request.
//
// WriteChunk and WriteResponse are mutually exclusive on a single writer
// instance. Calling WriteChunk after the terminal chunk, or mixing the two
// modes, returns an error.
type ResponseWriter interface {
	// WriteChunk sends a single streaming chunk. The terminal chunk (the
	// one carrying a finish reason) also ends the stream.
	WriteChunk(ctx context.Context, chunk *api.ChatChunk) error

	// WriteResponse sends a complete non-streaming response.
	WriteResponse(ctx context.Context, resp *api.ChatResponse) error

	// WriteStreamError sends an in-band error frame on an already started
	// stream and ends it. The stream is not followed by a done marker.
	WriteStreamError(ctx context.Context, apiErr *api.APIError) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
