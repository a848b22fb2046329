// Package relay implements the Provider interface for OpenAI-compatible
// relay backends such as LiteLLM proxies, vLLM servers, or any gateway
// that speaks the Chat Completions protocol. It delegates all HTTP
// communication to the shared openaicompat.Client and adds model name
// mapping for multi-backend routing.
package relay
