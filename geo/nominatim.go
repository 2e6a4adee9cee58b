package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"terminy/internal/metrics"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "terminy/1.0"
	defaultTimeout      = 15 * time.Second
)

// ErrUnavailable reports that the geocoder could not be reached or answered
// with an unusable payload.
var ErrUnavailable = errors.New("geocoder unavailable")

// Geocoder turns a free-text address into a coordinate. found is false when
// the address is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (point Point, found bool, err error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RatePerSecond defaults to the public instance limit of one request
	// per second.
	RatePerSecond float64
	HTTPClient    httpDoer
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

type NominatimGeocoder struct {
	baseURL    string
	userAgent  string
	httpClient httpDoer
	limiter    *rate.Limiter
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func NewNominatimGeocoder(cfg NominatimConfig) (*NominatimGeocoder, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid geocoder URL %q", cfg.BaseURL)
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}

	return &NominatimGeocoder{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: doer,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Point, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Point{}, false, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		g.metrics.ObserveGeocode("error")
		return Point{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "pl")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Point{}, false, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.metrics.ObserveGeocode("error")
		return Point{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.metrics.ObserveGeocode("error")
		return Point{}, false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.metrics.ObserveGeocode("error")
		return Point{}, false, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		g.metrics.ObserveGeocode("error")
		return Point{}, false, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(places) == 0 {
		g.metrics.ObserveGeocode("miss")
		return Point{}, false, nil
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
	point := Point{Latitude: lat, Longitude: lon}
	if latErr != nil || lonErr != nil || !point.Valid() {
		g.metrics.ObserveGeocode("error")
		return Point{}, false, fmt.Errorf("%w: bad coordinate %q,%q", ErrUnavailable, places[0].Lat, places[0].Lon)
	}

	g.metrics.ObserveGeocode("hit")
	g.log.Debug().Str("query", query).Stringer("point", point).Msg("geocoded address")
	return point, true, nil
}
