// Package api defines the unified chat-completion contract for the kanal
// gateway.
//
// This package provides the vendor-agnostic types exchanged with callers:
// requests, synchronous responses, incremental streamed chunks, usage
// accounting, error types, and ID generation. Vendor-specific wire formats
// never appear here; each provider adapter translates at its own boundary.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. All types produce JSON compatible with the OpenAI Chat
// Completions wire format, enabling client library compatibility.
//
// Core types:
//   - [Message]: A single role + content turn in the conversation
//   - [ChatRequest]: Caller request for model inference
//   - [ChatResponse]: Complete non-streaming response
//   - [ChatChunk]: One server-sent event of a streaming response
//   - [APIError]: Structured error with type, code, param, and message
//   - [ProviderError]: Upstream vendor failure carrying status verbatim
package api
