// Command server runs the kanal LLM gateway.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, KANAL_CONFIG env, ./config.yaml, /etc/kanal/config.yaml),
// then KANAL_* environment overrides. See pkg/config for the full schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/config"
	"github.com/kanal-dev/kanal/pkg/constraint"
	"github.com/kanal-dev/kanal/pkg/debug"
	"github.com/kanal-dev/kanal/pkg/gateway"
	"github.com/kanal-dev/kanal/pkg/provider"
	"github.com/kanal-dev/kanal/pkg/provider/anthropic"
	"github.com/kanal-dev/kanal/pkg/provider/gemini"
	"github.com/kanal-dev/kanal/pkg/provider/openai"
	"github.com/kanal-dev/kanal/pkg/provider/relay"
	"github.com/kanal-dev/kanal/pkg/provider/responses"
	"github.com/kanal-dev/kanal/pkg/registry"
	transporthttp "github.com/kanal-dev/kanal/pkg/transport/http"
	"github.com/kanal-dev/kanal/pkg/usage"
	usagepg "github.com/kanal-dev/kanal/pkg/usage/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	debug.Init("", "")

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	providers, closers, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	sink, sinkClose, err := buildSink(cfg)
	if err != nil {
		return err
	}
	if sinkClose != nil {
		defer sinkClose()
	}

	gw, err := gateway.New(gateway.Config{
		Registry:     reg,
		Constraints:  buildConstraints(cfg),
		Providers:    providers,
		DefaultModel: cfg.Gateway.DefaultModel,
		Validation: api.ValidationConfig{
			MaxMessages:    cfg.Gateway.MaxMessages,
			MaxContentSize: cfg.Gateway.MaxContentSize,
			MaxStopEntries: cfg.Gateway.MaxStopEntries,
		},
		Sink: sink,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	srv := transporthttp.NewServer(gw, gw,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)

	slog.Info("gateway starting",
		"port", cfg.Server.Port,
		"models", reg.Len(),
		"default_model", cfg.Gateway.DefaultModel,
		"usage_sink", cfg.Usage.Sink,
	)
	return srv.ListenAndServe()
}

// buildRegistry combines the built-in model table with config entries.
// A config entry with a built-in id replaces the built-in descriptor.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	byID := make(map[string]registry.Descriptor)
	for _, d := range registry.Default().List() {
		byID[d.ID] = d
	}

	for _, m := range cfg.Models {
		streaming := true
		if m.Streaming != nil {
			streaming = *m.Streaming
		}
		byID[m.ID] = registry.Descriptor{
			ID:                m.ID,
			Vendor:            registry.Vendor(m.Vendor),
			Endpoint:          registry.EndpointKind(m.Endpoint),
			WireID:            m.WireID,
			MaxTokens:         m.MaxTokens,
			SupportsStreaming: streaming,
		}
	}

	descs := make([]registry.Descriptor, 0, len(byID))
	for _, d := range byID {
		descs = append(descs, d)
	}

	reg, err := registry.New(descs...)
	if err != nil {
		return nil, fmt.Errorf("building model registry: %w", err)
	}
	return reg, nil
}

// buildConstraints merges config rules over the built-in rule table.
func buildConstraints(cfg *config.Config) *constraint.Engine {
	rules := constraint.DefaultRules()
	for model, cfgRules := range cfg.Constraints {
		rs := make(constraint.RuleSet, len(cfgRules))
		for param, r := range cfgRules {
			rs[constraint.Param(param)] = constraint.Constraint{
				Min:        r.Min,
				Max:        r.Max,
				Default:    r.Default,
				Disallowed: r.Disallowed,
				Remove:     r.Remove,
			}
		}
		rules[model] = rs
	}
	return constraint.NewEngine(rules)
}

// buildProviders wires one adapter per configured vendor. Vendors without
// credentials (or a base URL, for the relay) stay unwired; requests for
// their models fail with a configuration error instead of a vendor call.
func buildProviders(cfg *config.Config) (map[gateway.Family]provider.Provider, []provider.Provider, error) {
	providers := make(map[gateway.Family]provider.Provider)
	var closers []provider.Provider

	add := func(family gateway.Family, p provider.Provider) {
		providers[family] = p
		closers = append(closers, p)
	}

	if cfg.Vendors.OpenAI.APIKey != "" {
		chat, err := openai.New(openai.Config{
			APIKey:  cfg.Vendors.OpenAI.APIKey,
			BaseURL: cfg.Vendors.OpenAI.BaseURL,
			Timeout: cfg.Vendors.OpenAI.Timeout,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("creating openai adapter: %w", err)
		}
		add(gateway.FamilyDirectChat, chat)

		reasoning, err := responses.New(responses.Config{
			APIKey:  cfg.Vendors.OpenAI.APIKey,
			BaseURL: cfg.Vendors.OpenAI.BaseURL,
			Timeout: cfg.Vendors.OpenAI.Timeout,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("creating openai responses adapter: %w", err)
		}
		add(gateway.FamilyResponses, reasoning)
	}

	if cfg.Vendors.Anthropic.APIKey != "" {
		p, err := anthropic.New(anthropic.Config{
			APIKey:  cfg.Vendors.Anthropic.APIKey,
			BaseURL: cfg.Vendors.Anthropic.BaseURL,
			Timeout: cfg.Vendors.Anthropic.Timeout,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("creating anthropic adapter: %w", err)
		}
		add(gateway.FamilyMessages, p)
	}

	if cfg.Vendors.Gemini.APIKey != "" {
		p, err := gemini.New(gemini.Config{
			APIKey:  cfg.Vendors.Gemini.APIKey,
			BaseURL: cfg.Vendors.Gemini.BaseURL,
			Timeout: cfg.Vendors.Gemini.Timeout,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("creating gemini adapter: %w", err)
		}
		add(gateway.FamilyGenerateContent, p)
	}

	if cfg.Vendors.Relay.BaseURL != "" {
		p, err := relay.New(relay.Config{
			BaseURL:      cfg.Vendors.Relay.BaseURL,
			APIKey:       cfg.Vendors.Relay.APIKey,
			Timeout:      cfg.Vendors.Relay.Timeout,
			ModelMapping: cfg.Vendors.Relay.ModelMapping,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("creating relay adapter: %w", err)
		}
		add(gateway.FamilyRelay, p)
	}

	if len(providers) == 0 {
		slog.Warn("no vendor backends configured; all completions will fail")
	}

	return providers, closers, nil
}

// buildSink composes the outcome reporting chain. The metrics sink is
// always attached; log or postgres is added per config.
func buildSink(cfg *config.Config) (usage.Sink, func(), error) {
	sinks := usage.Multi{usage.MetricsSink{}}

	var cleanup func()
	switch cfg.Usage.Sink {
	case "log":
		sinks = append(sinks, &usage.LogSink{})
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pg, err := usagepg.New(ctx, usagepg.Config{
			DSN:            cfg.Usage.Postgres.DSN,
			MaxConns:       cfg.Usage.Postgres.MaxConns,
			MigrateOnStart: cfg.Usage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting usage sink: %w", err)
		}
		sinks = append(sinks, pg)
		cleanup = pg.Close
	case "none":
		// metrics only
	}

	return sinks, cleanup, nil
}
