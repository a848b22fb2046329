// Package provider defines the adapter contract between the gateway router
// and upstream LLM vendors.
//
// Each vendor family (direct chat, responses/reasoning, messages,
// generate-content, OpenAI-compatible relay) implements [Provider] in its
// own subpackage. Adapters own their vendor's wire types and perform all
// translation at their boundary: a vendor-specific field never leaks past
// the adapter, and the unified types never reach a vendor endpoint.
//
// Streaming uses a channel of [Event] values. The adapter closes the
// channel when the vendor stream ends; the consumer stops a stream by
// cancelling the context, which releases the underlying vendor connection.
// Event types form a closed set: unrecognized vendor events are dropped by
// the adapter, never surfaced.
package provider
