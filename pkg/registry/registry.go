// Package registry provides the static model table for the kanal gateway.
//
// The registry maps a caller-facing model identifier to a descriptor naming
// the owning vendor, the endpoint kind, the vendor-specific wire id, and the
// model's limits. It is a pure lookup: resolving an unknown id is a caller
// error raised before any network call.
//
// A Registry is read-only after construction and therefore safe for
// unsynchronized concurrent use.
package registry

import (
	"fmt"
	"sort"

	"github.com/kanal-dev/kanal/pkg/api"
)

// Vendor identifies the upstream vendor family owning a model.
type Vendor string

const (
	// VendorOpenAI serves both the direct-chat endpoint and, for models
	// with EndpointReasoning, the responses endpoint.
	VendorOpenAI Vendor = "openai"

	// VendorAnthropic serves the Messages API.
	VendorAnthropic Vendor = "anthropic"

	// VendorGemini serves the generateContent API.
	VendorGemini Vendor = "gemini"

	// VendorRelay serves any OpenAI-compatible backend behind a
	// configurable base URL.
	VendorRelay Vendor = "relay"
)

// ValidVendor reports whether v is a known vendor.
func ValidVendor(v Vendor) bool {
	switch v {
	case VendorOpenAI, VendorAnthropic, VendorGemini, VendorRelay:
		return true
	}
	return false
}

// EndpointKind selects which of a vendor's endpoints a model must use.
type EndpointKind string

const (
	// EndpointStandard is the vendor's ordinary chat endpoint.
	EndpointStandard EndpointKind = "standard"

	// EndpointReasoning routes to the vendor's reasoning endpoint, which
	// emits intermediate thinking events and uses different request
	// semantics.
	EndpointReasoning EndpointKind = "reasoning"
)

// Descriptor describes one model the gateway can serve.
type Descriptor struct {
	// ID is the caller-facing model identifier.
	ID string

	// Vendor owns the model.
	Vendor Vendor

	// Endpoint selects the vendor endpoint kind.
	Endpoint EndpointKind

	// WireID is the identifier sent to the vendor. Defaults to ID.
	WireID string

	// MaxTokens is the model's completion token ceiling (0 = unknown).
	MaxTokens int

	// SupportsStreaming indicates whether the model can stream.
	SupportsStreaming bool
}

// Registry is the read-only model table.
type Registry struct {
	models map[string]Descriptor
}

// New creates a Registry from the given descriptors. Descriptor IDs must be
// unique; WireID defaults to ID when empty.
func New(descs ...Descriptor) (*Registry, error) {
	models := make(map[string]Descriptor, len(descs))
	for _, d := range descs {
		if d.ID == "" {
			return nil, fmt.Errorf("registry: descriptor with empty id")
		}
		if !ValidVendor(d.Vendor) {
			return nil, fmt.Errorf("registry: model %q has unknown vendor %q", d.ID, d.Vendor)
		}
		if d.Endpoint == "" {
			d.Endpoint = EndpointStandard
		}
		if d.Endpoint != EndpointStandard && d.Endpoint != EndpointReasoning {
			return nil, fmt.Errorf("registry: model %q has unknown endpoint kind %q", d.ID, d.Endpoint)
		}
		if d.WireID == "" {
			d.WireID = d.ID
		}
		if _, exists := models[d.ID]; exists {
			return nil, fmt.Errorf("registry: duplicate model id %q", d.ID)
		}
		models[d.ID] = d
	}
	return &Registry{models: models}, nil
}

// Default returns a Registry populated with the built-in model table.
func Default() *Registry {
	r, err := New(builtinModels()...)
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error.
		panic("registry: invalid built-in model table: " + err.Error())
	}
	return r
}

// builtinModels is the default model table shipped with the gateway.
// Config entries may replace or extend it.
func builtinModels() []Descriptor {
	return []Descriptor{
		{ID: "gpt-4o", Vendor: VendorOpenAI, Endpoint: EndpointStandard, MaxTokens: 16384, SupportsStreaming: true},
		{ID: "gpt-4o-mini", Vendor: VendorOpenAI, Endpoint: EndpointStandard, MaxTokens: 16384, SupportsStreaming: true},
		{ID: "o3", Vendor: VendorOpenAI, Endpoint: EndpointReasoning, MaxTokens: 100000, SupportsStreaming: true},
		{ID: "o4-mini", Vendor: VendorOpenAI, Endpoint: EndpointReasoning, MaxTokens: 100000, SupportsStreaming: true},
		{ID: "claude-sonnet-4", Vendor: VendorAnthropic, WireID: "claude-sonnet-4-20250514", MaxTokens: 64000, SupportsStreaming: true},
		{ID: "claude-3-5-haiku", Vendor: VendorAnthropic, WireID: "claude-3-5-haiku-20241022", MaxTokens: 8192, SupportsStreaming: true},
		{ID: "gemini-2.0-flash", Vendor: VendorGemini, MaxTokens: 8192, SupportsStreaming: true},
		{ID: "gemini-1.5-pro", Vendor: VendorGemini, MaxTokens: 8192, SupportsStreaming: true},
	}
}

// DefaultModel is the process-wide fallback used when a request omits the
// model and no default is configured.
const DefaultModel = "gpt-4o-mini"

// Resolve looks up a model descriptor by caller-facing id. Unknown ids
// return an unsupported-model error; no I/O is performed.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	d, ok := r.models[id]
	if !ok {
		return Descriptor{}, api.NewUnsupportedModelError(id)
	}
	return d, nil
}

// List returns all descriptors sorted by id, for the model listing endpoint.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.models))
	for _, d := range r.models {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}
