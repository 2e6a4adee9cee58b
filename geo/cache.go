package geo

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"terminy/internal/metrics"
)

// Store persists resolved coordinates between runs. storage.SQLiteStore
// implements it.
type Store interface {
	GeocodeLookup(query string) (latitude, longitude float64, found bool, err error)
	GeocodeStore(query string, latitude, longitude float64) error
}

// CachedGeocoder answers from the persistent store first and remembers
// unknown addresses in memory for MissTTL so a session does not ask twice.
type CachedGeocoder struct {
	next    Geocoder
	store   Store
	misses  *gocache.Cache
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type CachedGeocoderConfig struct {
	Next    Geocoder
	Store   Store
	MissTTL time.Duration
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func NewCachedGeocoder(cfg CachedGeocoderConfig) *CachedGeocoder {
	ttl := cfg.MissTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedGeocoder{
		next:    cfg.Next,
		store:   cfg.Store,
		misses:  gocache.New(ttl, 2*ttl),
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (Point, bool, error) {
	query = strings.Join(strings.Fields(query), " ")
	key := strings.ToLower(query)
	if key == "" {
		return Point{}, false, nil
	}

	if c.store != nil {
		lat, lon, found, err := c.store.GeocodeLookup(key)
		if err != nil {
			c.log.Warn().Err(err).Str("query", key).Msg("geocode cache lookup failed")
		} else if found {
			c.metrics.ObserveGeocode("cached")
			return Point{Latitude: lat, Longitude: lon}, true, nil
		}
	}
	if _, missed := c.misses.Get(key); missed {
		return Point{}, false, nil
	}
	if c.next == nil {
		return Point{}, false, nil
	}

	point, found, err := c.next.Geocode(ctx, query)
	if err != nil {
		return Point{}, false, err
	}
	if !found {
		c.misses.SetDefault(key, struct{}{})
		return Point{}, false, nil
	}

	if c.store != nil {
		if err := c.store.GeocodeStore(key, point.Latitude, point.Longitude); err != nil {
			c.log.Warn().Err(err).Str("query", key).Msg("geocode cache store failed")
		}
	}
	return point, true, nil
}
