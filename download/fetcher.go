package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"terminy/appointment"
	"terminy/internal/metrics"
	"terminy/spreadsheet"
)

const (
	DefaultCacheTTL = 24 * time.Hour

	DefaultMaxSize int64 = 64 << 20
)

// ErrTooLarge is returned when a download exceeds the configured size limit.
var ErrTooLarge = errors.New("spreadsheet download exceeds size limit")

type FetcherConfig struct {
	Scraper    *Scraper
	Cache      *FileCache
	TTL        time.Duration
	HTTPClient httpDoer
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	// MaxSize caps a single download in bytes; zero means DefaultMaxSize.
	MaxSize int64
}

// Fetcher returns the spreadsheet of a region, downloading it when the
// cached copy is missing or older than the TTL.
type Fetcher struct {
	scraper    *Scraper
	cache      *FileCache
	ttl        time.Duration
	httpClient httpDoer
	log        zerolog.Logger
	metrics    *metrics.Metrics
	maxSize    int64
}

func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Scraper == nil {
		return nil, errors.New("scraper is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("file cache is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 2 * time.Minute}
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Fetcher{
		scraper:    cfg.Scraper,
		cache:      cfg.Cache,
		ttl:        ttl,
		httpClient: doer,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		maxSize:    maxSize,
	}, nil
}

// Fetch serves a fresh cached copy unless force is set. A download that does
// not contain a worksheet is never cached; when one fails, an older cached
// copy is served instead.
func (f *Fetcher) Fetch(ctx context.Context, region appointment.Region, force bool) ([]byte, error) {
	if !force && f.cache.IsFresh(region.Slug, f.ttl) {
		data, err := f.cache.Load(region.Slug)
		if err == nil {
			f.metrics.ObserveDownload("cached")
			return data, nil
		}
		f.log.Warn().Err(err).Str("region", region.Slug).Msg("cached spreadsheet unreadable, downloading")
	}

	data, err := f.download(ctx, region)
	if err != nil {
		if f.cache.Exists(region.Slug) {
			if stale, loadErr := f.cache.Load(region.Slug); loadErr == nil {
				f.log.Warn().Err(err).Str("region", region.Slug).Msg("download failed, serving stale spreadsheet")
				f.metrics.ObserveDownload("stale")
				return stale, nil
			}
		}
		f.metrics.ObserveDownload("error")
		return nil, err
	}

	if err := f.cache.Save(region.Slug, data); err != nil {
		f.log.Warn().Err(err).Str("region", region.Slug).Msg("could not cache spreadsheet")
	}
	f.metrics.ObserveDownload("downloaded")
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, region appointment.Region) ([]byte, error) {
	url, scraped := f.scraper.URLFor(ctx, region)
	data, err := f.get(ctx, url)
	if err == nil {
		return data, nil
	}
	if !scraped {
		return nil, fmt.Errorf("download spreadsheet for %s: %w", region.Slug, err)
	}

	// the scraped link went bad; forget it and try the known file id
	f.log.Warn().Err(err).Str("region", region.Slug).Str("url", url).Msg("scraped link failed")
	f.scraper.Cache().Invalidate()
	data, err = f.get(ctx, f.scraper.FallbackURL(region))
	if err != nil {
		return nil, fmt.Errorf("download spreadsheet for %s: %w", region.Slug, err)
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request %s failed with status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("read %s: %w (%d bytes)", url, ErrTooLarge, f.maxSize)
	}

	if _, err := spreadsheet.Extract(data); err != nil {
		return nil, err
	}
	return data, nil
}
