package main

import (
	"context"
	"time"

	"codeberg.org/mutker/healthsync/internal/aggregate"
	"codeberg.org/mutker/healthsync/internal/api"
	"codeberg.org/mutker/healthsync/internal/cache"
	"codeberg.org/mutker/healthsync/internal/clock"
	"codeberg.org/mutker/healthsync/internal/config"
	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/metrics"
	"codeberg.org/mutker/healthsync/internal/ratelimit"
	"codeberg.org/mutker/healthsync/internal/scan"
	"codeberg.org/mutker/healthsync/internal/source"
	"codeberg.org/mutker/healthsync/internal/store"
	"codeberg.org/mutker/healthsync/internal/sync"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds the components built from configuration for one command
type app struct {
	cfg      *config.Config
	clock    clock.Clock
	loc      *time.Location
	registry *prometheus.Registry
	metrics  metrics.Collector

	store      store.Store
	adapter    source.Adapter
	aggregator *aggregate.Aggregator
	client     *api.Client
	sync       *sync.Orchestrator
	scan       *scan.Service

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	errFactory := errors.New()
	log := logger.Default()

	a := &app{
		cfg:      cfg,
		clock:    clock.System(),
		registry: prometheus.NewRegistry(),
	}

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	a.loc = loc

	a.metrics, err = metrics.NewService(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Listen:  cfg.Metrics.Listen,
	}, a.registry)
	if err != nil {
		return nil, err
	}

	a.store, err = store.Open(store.Config{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
	}, log.With("store"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	caps, err := capabilities(cfg.Source)
	if err != nil {
		a.close()
		return nil, err
	}
	a.adapter = source.Select(ctx, caps, a.clock, log.With("source"))
	a.aggregator = aggregate.New(a.adapter, log.With("aggregate"))

	// backend stays nil without a base URL; local commands still work
	var backend sync.Backend
	if cfg.API.BaseURL != "" {
		apiCfg := api.DefaultConfig()
		apiCfg.BaseURL = cfg.API.BaseURL
		apiCfg.Token = cfg.API.Token
		apiCfg.Timeout = cfg.API.Timeout
		apiCfg.Platform = cfg.Source.Platform
		a.client, err = api.New(apiCfg, log.With("api"), api.WithObserver(a.metrics.ObserveRequest))
		if err != nil {
			a.close()
			return nil, err
		}
		backend = a.client
	}

	a.sync, err = sync.New(sync.Config{
		Source:     a.adapter.Name(),
		DeviceType: cfg.Sync.DeviceType,
		Timezone:   cfg.Sync.Timezone,
		Throttle:   cfg.Sync.Throttle,
		DaysBack:   cfg.Sync.DaysBack,
	}, a.aggregator, backend, a.store, log.With("sync"),
		sync.WithRecorder(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	if a.client == nil {
		return a, nil
	}

	limiter, err := ratelimit.New(ratelimit.Config{
		MinInterval: cfg.RateLimit.MinInterval,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	}, ratelimit.WithRejectHook(a.metrics.RateLimitRejected))
	if err != nil {
		a.close()
		return nil, err
	}

	history, closeCache, err := cache.New[scan.HistoryResult](cache.Config{
		Backend:   cfg.Cache.Backend,
		TTL:       cfg.Cache.TTL,
		RedisAddr: cfg.Cache.RedisAddr,
	}, a.clock, log.With("cache"), a.metrics.CacheLookup)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	scanCfg := scan.DefaultConfig()
	scanCfg.Timezone = cfg.Sync.Timezone
	a.scan, err = scan.New(scanCfg, a.client, limiter, history, scan.StaticIdentity(cfg.UserID), log.With("scan"),
		scan.WithRecorder(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func capabilities(cfg config.SourceConfig) (source.Capabilities, error) {
	caps := source.Capabilities{Platform: source.Platform(cfg.Platform)}
	if cfg.ExportPath == "" {
		return caps, nil
	}

	export, err := source.LoadExport(cfg.ExportPath)
	if err != nil {
		return caps, err
	}
	caps.Platform = source.PlatformIOS
	caps.HealthKit = export
	return caps, nil
}

// online fails when no backend is configured
func (a *app) online() error {
	if a.client == nil {
		return errors.New().WithMessage(errors.ErrMissingConfig, "api.base_url is not set")
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
