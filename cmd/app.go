package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/angeloszaimis/circuit-gate/config"
	"github.com/angeloszaimis/circuit-gate/internal/address"
	"github.com/angeloszaimis/circuit-gate/internal/backend"
	"github.com/angeloszaimis/circuit-gate/internal/circuitbreaker"
	"github.com/angeloszaimis/circuit-gate/internal/event"
	"github.com/angeloszaimis/circuit-gate/internal/handler"
	"github.com/angeloszaimis/circuit-gate/internal/healthcheck"
	"github.com/angeloszaimis/circuit-gate/internal/metrics"
	"github.com/angeloszaimis/circuit-gate/internal/rulesource"
	"github.com/angeloszaimis/circuit-gate/internal/rulestore"
	"github.com/angeloszaimis/circuit-gate/pkg/logger"
)

// app holds everything serve wires together.
type app struct {
	log        *slog.Logger
	collector  *metrics.Collector
	prometheus *metrics.Prometheus
	store      *rulestore.Store
	engine     *circuitbreaker.Engine
	upstream   *backend.Backend
	breaker    *handler.BreakerHandler
	closers    []func() error
}

func hostname(cfg *config.Config) string {
	if cfg.Breaker.Hostname != "" {
		return cfg.Breaker.Hostname
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}

// newRuleSource builds the configured source. The returned func releases
// any connection the source holds.
func newRuleSource(cfg *config.Config) (rulestore.Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Rules.Source {
	case config.SourceEmpty:
		return rulesource.Empty{}, noop, nil
	case config.SourceStatic:
		if len(cfg.Rules.Static) == 0 {
			return rulesource.Demo(), noop, nil
		}
		return rulesource.NewStatic(cfg.Rules.Static...), noop, nil
	case config.SourceFile:
		return rulesource.NewFile(cfg.Rules.File), noop, nil
	case config.SourceHTTP:
		return rulesource.NewHTTP(cfg.Rules.URL), noop, nil
	case config.SourceRedis:
		src := rulesource.NewRedis(rulesource.RedisConfig{
			Addr:     cfg.Rules.Redis.Address,
			Password: cfg.Rules.Redis.Password,
			DB:       cfg.Rules.Redis.DB,
			Key:      cfg.Rules.Redis.Key,
		})
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown rule source %q", cfg.Rules.Source)
	}
}

func refreshStrategy(cfg *config.Config) rulestore.Strategy {
	if cfg.Rules.Refresh == config.RefreshOnce {
		return rulestore.LoadOnce()
	}
	return rulestore.LoadAndRefreshPeriodically(cfg.Rules.Interval)
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{log: log}

	a.prometheus = metrics.NewPrometheus()
	a.collector = metrics.NewCollector(cfg.Metrics.BufferSize, logger.Component(log, "metrics"),
		metrics.WithPrometheus(a.prometheus))
	a.collector.Start(ctx)

	events := event.Multi(
		event.NewSlogLogger(log, event.WithErrorRateLimit(time.Second, 10)),
		a.collector,
	)

	source, closeSource, err := newRuleSource(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeSource)

	host := hostname(cfg)
	a.store, err = rulestore.New(ctx, source, refreshStrategy(cfg),
		rulestore.WithEventLogger(events),
		rulestore.WithHost(host),
		rulestore.WithFetchTimeout(cfg.Rules.Timeout))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load rules: %w", err)
	}

	a.engine = circuitbreaker.NewEngine(a.store, address.NewFinder(cfg.Upstream.TrustForwardedFor),
		circuitbreaker.WithEventLogger(events),
		circuitbreaker.WithHostname(host),
		circuitbreaker.WithLockTimeout(cfg.Breaker.LockTimeout),
		circuitbreaker.WithStaleAfter(cfg.Breaker.StaleAfter))

	upstreamURL, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	a.upstream = backend.New(upstreamURL, backend.WithLogger(logger.Component(log, "upstream")))
	if cfg.Upstream.HealthPath != "" {
		go healthcheck.HealthCheck(ctx, a.upstream, cfg.Upstream.HealthPath, cfg.Upstream.HealthInterval,
			logger.Component(log, "healthcheck"))
	}
	a.breaker = handler.New(logger.Component(log, "handler"), a.engine, a.upstream)

	return a, nil
}

// Close stops the rule refresh loop and releases the rule source.
func (a *app) Close() error {
	if a.store != nil {
		a.store.Close()
	}
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
