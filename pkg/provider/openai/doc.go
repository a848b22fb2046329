// Package openai implements the Provider interface for the OpenAI Chat
// Completions API. The wire format matches the shared openaicompat types,
// so this adapter delegates all HTTP communication to the shared
// openaicompat.Client with a fixed base URL.
package openai
