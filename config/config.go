package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyAPIBaseURL            = "api.base_url"
	KeyAPIUserAgent          = "api.user_agent"
	KeyAPITimeout            = "api.timeout"
	KeyAPIRatePerSecond      = "api.rate_per_second"
	KeyAPIBurst              = "api.burst"
	KeyAPIMaxRetries         = "api.max_retries"
	KeySpreadsheetBaseURL    = "spreadsheet.base_url"
	KeySpreadsheetCacheDir   = "spreadsheet.cache_dir"
	KeySpreadsheetCacheTTL   = "spreadsheet.cache_ttl"
	KeySpreadsheetURLTTL     = "spreadsheet.url_cache_ttl"
	KeyGeocoderEnabled       = "geocoder.enabled"
	KeyGeocoderURL           = "geocoder.url"
	KeyGeocoderRatePerSecond = "geocoder.rate_per_second"
	KeyLocationLatitude      = "location.latitude"
	KeyLocationLongitude     = "location.longitude"
	KeySearchSource          = "search.source"
	KeyStoragePath           = "storage.path"
	KeyLogLevel              = "log.level"
	KeyLogFormat             = "log.format"
)

const (
	SourceAPI   = "api"
	SourceSheet = "sheet"
)

type Config struct {
	API         APIConfig         `mapstructure:"api" validate:"required"`
	Spreadsheet SpreadsheetConfig `mapstructure:"spreadsheet" validate:"required"`
	Geocoder    GeocoderConfig    `mapstructure:"geocoder"`
	Location    LocationConfig    `mapstructure:"location"`
	Search      SearchConfig      `mapstructure:"search"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Log         LogConfig         `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RatePerSecond float64       `mapstructure:"rate_per_second" validate:"gte=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=0"`
	MaxRetries    int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

type SpreadsheetConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	CacheDir    string        `mapstructure:"cache_dir"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	URLCacheTTL time.Duration `mapstructure:"url_cache_ttl" validate:"gte=0"`
}

type GeocoderConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	URL           string  `mapstructure:"url" validate:"required_if=Enabled true,omitempty,url"`
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gte=0"`
}

// LocationConfig is the user's fixed position. Both coordinates must be set
// for distance ranking from coordinates to work.
type LocationConfig struct {
	Latitude  *float64 `mapstructure:"latitude" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
	Longitude *float64 `mapstructure:"longitude" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`
}

type SearchConfig struct {
	Source string `mapstructure:"source" validate:"oneof=api sheet"`
}

type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=console json"`
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# terminy configuration
api:
  base_url: "https://api.nfz.gov.pl/app-itl-api"
  user_agent: "terminy/1.0"
  timeout: 30s
  rate_per_second: 5
  burst: 1
  max_retries: 3

spreadsheet:
  base_url: "https://terminyleczenia.nfz.gov.pl"
  cache_dir: ""
  cache_ttl: 24h
  url_cache_ttl: 6h

geocoder:
  enabled: true
  url: "https://nominatim.openstreetmap.org"
  rate_per_second: 1

# Your position, used to rank results by distance.
location: {}
#  latitude: 52.2297
#  longitude: 21.0122

search:
  source: api

storage:
  path: "terminy.db"

log:
  level: info
  format: console
`
}

// DefaultCacheDir is where downloaded spreadsheets are kept when
// spreadsheet.cache_dir is empty.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "terminy", "spreadsheets")
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if cfg.Spreadsheet.CacheDir == "" {
		cfg.Spreadsheet.CacheDir = DefaultCacheDir()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIBaseURL, "https://api.nfz.gov.pl/app-itl-api")
	v.SetDefault(KeyAPIUserAgent, "terminy/1.0")
	v.SetDefault(KeyAPITimeout, "30s")
	v.SetDefault(KeyAPIRatePerSecond, 5.0)
	v.SetDefault(KeyAPIBurst, 1)
	v.SetDefault(KeyAPIMaxRetries, 3)
	v.SetDefault(KeySpreadsheetBaseURL, "https://terminyleczenia.nfz.gov.pl")
	v.SetDefault(KeySpreadsheetCacheDir, "")
	v.SetDefault(KeySpreadsheetCacheTTL, "24h")
	v.SetDefault(KeySpreadsheetURLTTL, "6h")
	v.SetDefault(KeyGeocoderEnabled, true)
	v.SetDefault(KeyGeocoderURL, "https://nominatim.openstreetmap.org")
	v.SetDefault(KeyGeocoderRatePerSecond, 1.0)
	v.SetDefault(KeySearchSource, SourceAPI)
	v.SetDefault(KeyStoragePath, "terminy.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}
