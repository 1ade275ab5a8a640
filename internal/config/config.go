package config

import (
	"sync/atomic"
)

var configValue atomic.Value

func GetConfig() *Config {
	cfg, ok := configValue.Load().(*Config)
	if !ok {
		return NewDefaultConfig()
	}
	return cfg
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string            `mapstructure:"version"`
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Weather     WeatherConfig     `mapstructure:"weather"`
	Geocoding   GeocodingConfig   `mapstructure:"geocoding"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Map         MapConfig         `mapstructure:"map"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// WeatherConfig points at the forecast/summary backend. Timeout and CacheTTL
// are in seconds; a zero CacheTTL disables response caching.
type WeatherConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  int           `mapstructure:"timeout"`
	CacheTTL int           `mapstructure:"cache_ttl"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests uint32 `mapstructure:"max_requests"`
	Interval    int    `mapstructure:"interval"`
	Timeout     int    `mapstructure:"timeout"`
	MaxFailures uint32 `mapstructure:"max_failures"`
}

// GeocodingConfig targets a Nominatim compatible service. RateLimit is in
// requests per second.
type GeocodingConfig struct {
	BaseURL   string  `mapstructure:"base_url"`
	UserAgent string  `mapstructure:"user_agent"`
	Language  string  `mapstructure:"language"`
	Timeout   int     `mapstructure:"timeout"`
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
	CacheTTL  int     `mapstructure:"cache_ttl"`
}

// GeolocationConfig selects the one-shot location provider: "ip", "static"
// or "none".
type GeolocationConfig struct {
	Provider  string  `mapstructure:"provider"`
	BaseURL   string  `mapstructure:"base_url"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Timeout   int     `mapstructure:"timeout"`
}

type MapConfig struct {
	MinZoom     int    `mapstructure:"min_zoom"`
	MaxZoom     int    `mapstructure:"max_zoom"`
	InitialZoom int    `mapstructure:"initial_zoom"`
	FlyToStep   int    `mapstructure:"fly_to_step"`
	TileURL     string `mapstructure:"tile_url"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Weather: WeatherConfig{
			BaseURL:  "https://weatherapp-backend-adhy.onrender.com",
			Timeout:  10,
			CacheTTL: 300,
			Breaker: BreakerConfig{
				MaxRequests: 5,
				Interval:    60,
				Timeout:     120,
				MaxFailures: 5,
			},
		},
		Geocoding: GeocodingConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "weather-dashboard/1.0",
			Language:  "en",
			Timeout:   10,
			RateLimit: 1,
			Burst:     1,
			CacheTTL:  3600,
		},
		Geolocation: GeolocationConfig{
			Provider: "ip",
			BaseURL:  "http://ip-api.com/json",
			Timeout:  5,
		},
		Map: MapConfig{
			MinZoom:     2,
			MaxZoom:     18,
			InitialZoom: 2,
			FlyToStep:   5,
			TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "tempo:4317",
		},
	}
}
