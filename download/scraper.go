// Package download retrieves the legacy per-region queue spreadsheets from
// the NFZ "terminy leczenia" portal and keeps them in a local file cache.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"terminy/appointment"
	"terminy/internal/htmlentity"
)

const (
	DefaultBaseURL = "https://terminyleczenia.nfz.gov.pl"

	downloadPagePath = "/Download"
	scraperUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	spreadsheetMime  = "application%2Fvnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxPageSize      = 4 << 20
)

var linkPattern = regexp.MustCompile(`<a[^>]*href="(/DownloadFile/[^"]+)"[^>]*>[\s\S]*?</span>([^<]+)</a>`)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// URLCache remembers scraped download links per region slug for a limited
// time. It lives in memory only.
type URLCache struct {
	items *cache.Cache
}

func NewURLCache(ttl time.Duration) *URLCache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &URLCache{items: cache.New(ttl, 10*time.Minute)}
}

func (c *URLCache) Get(slug string) (string, bool) {
	value, ok := c.items.Get(slug)
	if !ok {
		return "", false
	}
	url, ok := value.(string)
	return url, ok
}

func (c *URLCache) Set(slug, url string) {
	c.items.SetDefault(slug, url)
}

func (c *URLCache) Len() int {
	return c.items.ItemCount()
}

// Invalidate forgets every scraped link so the next lookup scrapes again.
func (c *URLCache) Invalidate() {
	c.items.Flush()
}

type ScraperConfig struct {
	BaseURL    string
	HTTPClient httpDoer
	Cache      *URLCache
	Logger     zerolog.Logger
}

// Scraper resolves the current download link of a region from the public
// download page, falling back to the known file identifiers.
type Scraper struct {
	baseURL    string
	httpClient httpDoer
	cache      *URLCache
	log        zerolog.Logger
}

func NewScraper(cfg ScraperConfig) *Scraper {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	urls := cfg.Cache
	if urls == nil {
		urls = NewURLCache(0)
	}
	return &Scraper{baseURL: baseURL, httpClient: doer, cache: urls, log: cfg.Logger}
}

func (s *Scraper) Cache() *URLCache {
	return s.cache
}

// URLFor returns the download link for a region. The page is scraped at most
// once while the cache holds entries; scraping errors fall back silently.
func (s *Scraper) URLFor(ctx context.Context, region appointment.Region) (string, bool) {
	if url, ok := s.cache.Get(region.Slug); ok {
		return url, true
	}
	if s.cache.Len() == 0 {
		if _, err := s.Scrape(ctx); err != nil {
			s.log.Warn().Err(err).Msg("download page scrape failed, using known file ids")
		}
		if url, ok := s.cache.Get(region.Slug); ok {
			return url, true
		}
	}
	return s.FallbackURL(region), false
}

func (s *Scraper) FallbackURL(region appointment.Region) string {
	return s.baseURL + "/DownloadFile/" + region.FileID + "?mime=" + spreadsheetMime
}

// Scrape fetches the download page and caches every recognised link.
func (s *Scraper) Scrape(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+downloadPagePath, nil)
	if err != nil {
		return nil, fmt.Errorf("create download page request: %w", err)
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch download page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch download page failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read download page: %w", err)
	}

	links := ParseLinks(string(body), s.baseURL)
	for slug, url := range links {
		s.cache.Set(slug, url)
	}
	s.log.Debug().Int("links", len(links)).Msg("download page scraped")
	return links, nil
}

// ParseLinks extracts region download links from the download page markup.
// Anchor texts that do not name a voivodeship are ignored.
func ParseLinks(page, baseURL string) map[string]string {
	links := make(map[string]string)
	for _, match := range linkPattern.FindAllStringSubmatch(page, -1) {
		name := strings.ToLower(strings.TrimSpace(htmlentity.Decode(match[2])))
		region, ok := appointment.RegionBySlug(name)
		if !ok {
			continue
		}
		links[region.Slug] = baseURL + htmlentity.Decode(match[1])
	}
	return links
}
