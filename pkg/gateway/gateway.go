package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/constraint"
	"github.com/kanal-dev/kanal/pkg/observability"
	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/registry"
	"github.com/kanal-dev/kanal/pkg/usage"
)

// Family identifies one vendor adapter family. Each family speaks a
// distinct upstream wire protocol.
type Family string

const (
	FamilyDirectChat      Family = "direct-chat"
	FamilyResponses       Family = "responses"
	FamilyMessages        Family = "messages"
	FamilyGenerateContent Family = "generate-content"
	FamilyRelay           Family = "relay"
)

// familyFor maps a model descriptor to the adapter family serving it.
// OpenAI models split on endpoint kind; the other vendors have one
// endpoint each.
func familyFor(d registry.Descriptor) Family {
	switch d.Vendor {
	case registry.VendorOpenAI:
		if d.Endpoint == registry.EndpointReasoning {
			return FamilyResponses
		}
		return FamilyDirectChat
	case registry.VendorAnthropic:
		return FamilyMessages
	case registry.VendorGemini:
		return FamilyGenerateContent
	case registry.VendorRelay:
		return FamilyRelay
	}
	return ""
}

// Config holds configuration for the gateway router.
type Config struct {
	// Registry is the model table. Required.
	Registry *registry.Registry

	// Constraints adjusts parameters per model. Nil means no adjustment.
	Constraints *constraint.Engine

	// Providers maps each adapter family to its backend. A family absent
	// from the map cannot serve requests.
	Providers map[Family]provider.Provider

	// DefaultModel is used when the request omits the model field.
	// Empty string falls back to registry.DefaultModel.
	DefaultModel string

	// Validation holds request validation limits. Zero value uses
	// api.DefaultValidationConfig.
	Validation api.ValidationConfig

	// Sink receives one outcome event per routed call. Nil discards.
	Sink usage.Sink
}

// Gateway routes unified chat requests to vendor adapter families. It is
// safe for concurrent use.
type Gateway struct {
	registry     *registry.Registry
	constraints  *constraint.Engine
	providers    map[Family]provider.Provider
	defaultModel string
	validation   api.ValidationConfig
	sink         usage.Sink
}

// New creates a Gateway. The registry must not be nil.
func New(cfg Config) (*Gateway, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("gateway: registry must not be nil")
	}
	if cfg.Constraints == nil {
		cfg.Constraints = constraint.NewEngine(constraint.DefaultRules())
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = registry.DefaultModel
	}
	if cfg.Validation == (api.ValidationConfig{}) {
		cfg.Validation = api.DefaultValidationConfig()
	}
	if cfg.Sink == nil {
		cfg.Sink = usage.NopSink{}
	}
	return &Gateway{
		registry:     cfg.Registry,
		constraints:  cfg.Constraints,
		providers:    cfg.Providers,
		defaultModel: cfg.DefaultModel,
		validation:   cfg.Validation,
		sink:         cfg.Sink,
	}, nil
}

// Models returns all registered model descriptors sorted by id.
func (g *Gateway) Models() []registry.Descriptor {
	return g.registry.List()
}

// route is the resolved dispatch plan for one request.
type route struct {
	desc     registry.Descriptor
	family   Family
	prov     provider.Provider
	provReq  *provider.Request
	callerID string
	start    time.Time
}

// prepare runs the pre-dispatch pipeline: validation, default model,
// registry resolution, constraint application, and provider lookup.
// Every failure here is raised before any network call.
func (g *Gateway) prepare(req *api.ChatRequest, callerID string, stream bool) (*route, error) {
	if apiErr := api.ValidateRequest(req, g.validation); apiErr != nil {
		return nil, apiErr
	}

	if req.Model == "" {
		req = req.Clone()
		req.Model = g.defaultModel
	}

	desc, err := g.registry.Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	if stream && !desc.SupportsStreaming {
		return nil, api.NewValidationError("stream",
			fmt.Sprintf("model %q does not support streaming", req.Model))
	}

	family := familyFor(desc)
	prov, ok := g.providers[family]
	if !ok || prov == nil {
		return nil, api.NewServerError(
			fmt.Sprintf("no backend configured for model %q", req.Model))
	}

	derived := g.constraints.Apply(req, desc.ID)

	return &route{
		desc:     desc,
		family:   family,
		prov:     prov,
		provReq:  buildProviderRequest(derived, desc, stream),
		callerID: callerID,
		start:    time.Now(),
	}, nil
}

// Route handles a non-streaming chat completion. It dispatches to the
// model's adapter family and reports exactly one outcome event.
func (g *Gateway) Route(ctx context.Context, req *api.ChatRequest, callerID string) (*api.ChatResponse, error) {
	rt, err := g.prepare(req, callerID, false)
	if err != nil {
		return nil, err
	}

	result, err := rt.prov.Complete(ctx, rt.provReq)
	duration := time.Since(rt.start)
	vendor := string(rt.desc.Vendor)

	observability.VendorLatency.WithLabelValues(vendor, rt.desc.ID).Observe(duration.Seconds())

	if err != nil {
		observability.VendorRequestsTotal.WithLabelValues(vendor, rt.desc.ID, "error").Inc()
		g.report(ctx, rt, duration, 0, statusFor(ctx), err)
		return nil, err
	}

	observability.VendorRequestsTotal.WithLabelValues(vendor, rt.desc.ID, "success").Inc()
	observability.VendorTokensTotal.WithLabelValues(vendor, rt.desc.ID, "input").Add(float64(result.Usage.PromptTokens))
	observability.VendorTokensTotal.WithLabelValues(vendor, rt.desc.ID, "output").Add(float64(result.Usage.CompletionTokens))
	g.report(ctx, rt, duration, result.Usage.TotalTokens, usage.StatusSuccess, nil)

	return buildResponse(rt, result), nil
}

// statusFor classifies a dispatch failure. Context cancellation counts as
// an abort by the caller, anything else as an upstream error.
func statusFor(ctx context.Context) usage.Status {
	if ctx.Err() != nil {
		return usage.StatusAborted
	}
	return usage.StatusError
}

// report emits the single outcome event for a call. Reporting runs on a
// background context so a cancelled request can still be recorded.
func (g *Gateway) report(ctx context.Context, rt *route, duration time.Duration, totalTokens int, status usage.Status, err error) {
	ev := usage.Event{
		CallerID:    rt.callerID,
		Model:       rt.desc.ID,
		Vendor:      string(rt.desc.Vendor),
		TotalTokens: totalTokens,
		Duration:    duration,
		Status:      status,
		Timestamp:   time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	g.sink.Report(context.WithoutCancel(ctx), ev)
}
