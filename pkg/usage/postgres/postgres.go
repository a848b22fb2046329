// Package postgres provides a PostgreSQL-backed usage sink. It uses pgx/v5
// for connection pooling and keeps one row per reported completion.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kanal-dev/kanal/pkg/usage"
)

// Sink persists usage events to PostgreSQL.
type Sink struct {
	pool *pgxpool.Pool
}

// Ensure Sink implements usage.Sink at compile time.
var _ usage.Sink = (*Sink)(nil)

// New creates a new PostgreSQL sink with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Sink{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Report inserts the event. Reporting must never disturb the request path,
// so insert failures are logged and swallowed.
func (s *Sink) Report(ctx context.Context, ev usage.Event) {
	if err := s.insert(ctx, ev); err != nil {
		slog.Error("persisting usage event", "error", err, "model", ev.Model, "vendor", ev.Vendor)
	}
}

func (s *Sink) insert(ctx context.Context, ev usage.Event) error {
	var callerID *string
	if ev.CallerID != "" {
		callerID = &ev.CallerID
	}
	var errMsg *string
	if ev.Error != "" {
		errMsg = &ev.Error
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO usage_events (caller_id, model, vendor, total_tokens, duration_ms, status, error, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		callerID, ev.Model, ev.Vendor, ev.TotalTokens,
		ev.Duration.Milliseconds(), string(ev.Status), errMsg, ev.Timestamp,
	)
	return err
}

// Close releases the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}
