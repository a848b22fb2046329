// Package openaicompat provides shared translation code for any
// OpenAI-compatible Chat Completions backend. It handles request
// serialization, response parsing, SSE chunk streaming, and error mapping.
//
// Provider adapters (the direct OpenAI adapter and the generic relay
// adapter) embed the Client from this package and delegate their
// Complete/Stream calls to it.
package openaicompat
