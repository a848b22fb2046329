package usage

import (
	"context"

	"github.com/kanal-dev/kanal/pkg/observability"
)

// MetricsSink records outcome events as Prometheus counters.
type MetricsSink struct{}

var _ Sink = MetricsSink{}

func (MetricsSink) Report(_ context.Context, ev Event) {
	caller := ev.CallerID
	if caller == "" {
		caller = "anonymous"
	}
	observability.OutcomesTotal.WithLabelValues(caller, ev.Model, string(ev.Status)).Inc()
	if ev.TotalTokens > 0 {
		observability.VendorTokensTotal.
			WithLabelValues(ev.Vendor, ev.Model, "total").
			Add(float64(ev.TotalTokens))
	}
}
