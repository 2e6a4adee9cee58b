package cmd

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"terminy/config"
	"terminy/download"
	"terminy/geo"
	"terminy/importer"
	"terminy/internal/logging"
	"terminy/internal/metrics"
	"terminy/nfz"
	"terminy/search"
	"terminy/storage"
)

// app holds the services shared by the search, import and serve commands.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	store   *storage.SQLiteStore
	client  *nfz.HTTPClient
	fetcher *download.Fetcher
	source  importer.RawRecordSource
	// sourceName is the resolved search.source.
	sourceName string
	resolver   *geo.Resolver
}

type appOptions struct {
	// Source overrides search.source when set.
	Source string
	// Registerer receives the process metrics. Nil disables collection.
	Registerer prometheus.Registerer
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.New(opts.Registerer)
	}

	store, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	client, err := nfz.NewClient(nfz.ClientConfig{
		BaseURL:       cfg.API.BaseURL,
		UserAgent:     cfg.API.UserAgent,
		Timeout:       cfg.API.Timeout,
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
		MaxRetries:    cfg.API.MaxRetries,
		Logger:        log.With().Str("component", "nfz").Logger(),
		Metrics:       m,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create NFZ client: %w", err)
	}

	fileCache, err := download.NewFileCache(cfg.Spreadsheet.CacheDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open spreadsheet cache: %w", err)
	}
	downloadLog := log.With().Str("component", "download").Logger()
	fetcher, err := download.NewFetcher(download.FetcherConfig{
		Scraper: download.NewScraper(download.ScraperConfig{
			BaseURL: cfg.Spreadsheet.BaseURL,
			Cache:   download.NewURLCache(cfg.Spreadsheet.URLCacheTTL),
			Logger:  downloadLog,
		}),
		Cache:   fileCache,
		TTL:     cfg.Spreadsheet.CacheTTL,
		Logger:  downloadLog,
		Metrics: m,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create spreadsheet fetcher: %w", err)
	}

	sourceName := cfg.Search.Source
	if opts.Source != "" {
		sourceName = opts.Source
	}
	var source importer.RawRecordSource
	switch sourceName {
	case config.SourceAPI:
		source = &importer.APISource{Client: client}
	case config.SourceSheet:
		source = &importer.SheetSource{Fetcher: fetcher, Logger: downloadLog}
	default:
		_ = store.Close()
		return nil, fmt.Errorf("unsupported source %q (supported: %s, %s)", sourceName, config.SourceAPI, config.SourceSheet)
	}

	geoLog := log.With().Str("component", "geo").Logger()
	var geocoder geo.Geocoder
	if cfg.Geocoder.Enabled {
		nominatim, err := geo.NewNominatimGeocoder(geo.NominatimConfig{
			BaseURL:       cfg.Geocoder.URL,
			UserAgent:     cfg.API.UserAgent,
			RatePerSecond: cfg.Geocoder.RatePerSecond,
			Logger:        geoLog,
			Metrics:       m,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create geocoder: %w", err)
		}
		geocoder = nominatim
	}
	cached := geo.NewCachedGeocoder(geo.CachedGeocoderConfig{
		Next:    geocoder,
		Store:   store,
		Logger:  geoLog,
		Metrics: m,
	})

	return &app{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		store:      store,
		client:     client,
		fetcher:    fetcher,
		source:     source,
		sourceName: sourceName,
		resolver:   geo.NewResolver(cached, geoLog),
	}, nil
}

// orchestrator builds a search session. Location overrides the configured
// position when non-nil.
// userLocation prefers an explicit point over location.* from the config.
func (a *app) userLocation(override *geo.Point) *geo.Point {
	if override != nil {
		return override
	}
	return geo.NewStaticLocation(a.cfg.Location.Latitude, a.cfg.Location.Longitude).Point
}

func (a *app) orchestrator(location *geo.Point) *search.Orchestrator {
	return search.New(search.Config{
		Source:    a.source,
		Suggester: a.client,
		Resolver:  a.resolver,
		Location:  geo.StaticLocation{Point: a.userLocation(location)},
		Logger:    a.log.With().Str("component", "search").Logger(),
		Metrics:   a.metrics,
	})
}

func (a *app) Close() error {
	return a.store.Close()
}
