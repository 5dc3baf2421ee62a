// Package app wires settings into a loaded station store and resolver.
package app

import (
	"context"
	"time"

	"github.com/sharksmhi/ctdstations/internal/conf"
	"github.com/sharksmhi/ctdstations/internal/httpclient"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/observability"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

// App holds the components shared by the CLI commands and the API server.
type App struct {
	Settings *conf.Settings
	Store    *stations.Store
	Resolver *stations.Resolver
	Metrics  *observability.Metrics

	fetcher *stations.HTTPFetcher
	log     logger.Logger
}

type openOptions struct {
	refresh *bool
	fetcher stations.Fetcher
	log     logger.Logger
}

// Option configures Open.
type Option func(*openOptions)

// WithRefresh overrides settings.Stations.RefreshPrimary.
func WithRefresh(refresh bool) Option {
	return func(o *openOptions) { o.refresh = &refresh }
}

// WithFetcher replaces the HTTP fetcher used for the primary source.
func WithFetcher(f stations.Fetcher) Option {
	return func(o *openOptions) { o.fetcher = f }
}

// WithLogger sets the logger passed to every component.
func WithLogger(l logger.Logger) Option {
	return func(o *openOptions) { o.log = l }
}

// Open loads the reference table described by settings and builds a resolver over it.
func Open(ctx context.Context, settings *conf.Settings, opts ...Option) (*App, error) {
	o := openOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Global().Module("stations")
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	a := &App{Settings: settings, Metrics: m, log: o.log}

	fetcher := o.fetcher
	if fetcher == nil {
		a.fetcher = stations.NewHTTPFetcher(httpclient.New(&httpclient.Config{
			DefaultTimeout: fetchTimeout(settings),
		}))
		fetcher = a.fetcher
	}

	src := settings.Stations.SourceConfig()
	if o.refresh != nil {
		src.RefreshPrimary = *o.refresh
	}

	store, err := stations.Load(ctx, src,
		stations.WithFetcher(fetcher),
		stations.WithLogger(o.log),
		stations.WithMetrics(m.Stations))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	resolverOpts := []stations.ResolverOption{
		stations.WithQueryEncoding(settings.Stations.QueryEncoding()),
		stations.WithQueryCache(settings.Stations.QueryCacheTTL),
		stations.WithRecorder(m.Stations),
		stations.WithResolverLogger(o.log),
	}
	if path := settings.Stations.FilterFile; path != "" {
		names, err := stations.ReadAllowlist(path, settings.Stations.FilterEncoding)
		if err != nil {
			a.Close()
			return nil, err
		}
		o.log.Debug("Station filter loaded", logger.String("path", path), logger.Int("names", len(names)))
		resolverOpts = append(resolverOpts, stations.WithAllowlist(names))
	}
	a.Resolver = stations.NewResolver(store, resolverOpts...)
	return a, nil
}

// Close releases the result cache and idle connections.
func (a *App) Close() {
	if a.Resolver != nil {
		a.Resolver.Close()
	}
	if a.fetcher != nil {
		a.fetcher.Close()
	}
}

// fetchTimeout maps the configured timeout to the HTTP client, where a
// negative value disables the default.
func fetchTimeout(settings *conf.Settings) time.Duration {
	if settings.Stations.FetchTimeout == 0 {
		return -1
	}
	return settings.Stations.FetchTimeout
}
