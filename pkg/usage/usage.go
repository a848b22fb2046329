// Package usage defines the outcome reporting contract. The gateway emits
// exactly one Event per routed call; sinks consume them fire-and-forget.
// A failing sink never fails the call that produced the event.
package usage

import (
	"context"
	"log/slog"
	"time"
)

// Status classifies the outcome of a gateway call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusAborted Status = "aborted"
)

// Event is the per-call outcome record. TotalTokens is zero when the
// vendor reported no usage (e.g., an aborted stream).
type Event struct {
	CallerID    string
	Model       string
	Vendor      string
	TotalTokens int
	Duration    time.Duration
	Status      Status
	Error       string
	Timestamp   time.Time
}

// Sink consumes outcome events. Implementations must be safe for
// concurrent use and must not block the caller longer than necessary;
// Report errors are handled internally (logged), never returned.
type Sink interface {
	Report(ctx context.Context, ev Event)
}

// NopSink discards all events.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) Report(context.Context, Event) {}

// LogSink writes each event as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

var _ Sink = (*LogSink)(nil)

func (s *LogSink) Report(_ context.Context, ev Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("usage",
		"caller", ev.CallerID,
		"model", ev.Model,
		"vendor", ev.Vendor,
		"total_tokens", ev.TotalTokens,
		"duration_ms", ev.Duration.Milliseconds(),
		"status", string(ev.Status),
		"error", ev.Error,
	)
}

// Multi fans each event out to all wrapped sinks in order.
type Multi []Sink

var _ Sink = Multi(nil)

func (m Multi) Report(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Report(ctx, ev)
	}
}
