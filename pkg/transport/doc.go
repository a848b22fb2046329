// Package transport defines the handler interfaces and middleware chain for
// the kanal HTTP/SSE transport layer.
//
// The transport layer bridges external clients and the gateway router. It
// deserializes incoming requests into the unified types defined in pkg/api,
// dispatches them for routing, and serializes responses back to the client
// in either synchronous (JSON) or streaming (SSE) format.
//
// # Handler Interfaces
//
// CompletionHandler is the contract between the transport layer and the
// router: it receives a decoded ChatRequest and writes the result through a
// ResponseWriter. ModelLister serves the model listing endpoint.
//
// The ResponseWriter interface abstracts streaming and non-streaming
// output, allowing the handler to emit SSE chunks or a complete JSON
// response without knowing the underlying transport protocol.
//
// # Middleware
//
// The middleware chain wraps CompletionHandler with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. The caller identity
// extracted from X-Caller-ID travels in the context.
package transport
