// Package gateway implements the core routing logic for kanal. The Gateway
// struct bridges incoming chat completion requests to vendor adapter
// families. It handles validation, model resolution, parameter constraint
// application, provider dispatch, streaming chunk assembly, and per-call
// outcome reporting.
package gateway
