// Package geocoding talks to a Nominatim compatible geocoder.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FallbackPlaceName labels a location the geocoder could not name.
const FallbackPlaceName = "your location"

var (
	ErrNoResults        = errors.New("no geocoding results")
	ErrUnexpectedStatus = errors.New("unexpected geocoder status")
)

// Address holds the settlement fields of a reverse geocoding answer.
type Address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
}

// PlaceName returns the first non-empty of city, town and village, or
// FallbackPlaceName.
func (a Address) PlaceName() string {
	for _, name := range []string{a.City, a.Town, a.Village} {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return FallbackPlaceName
}

// Place is one forward geocoding match. Nominatim sends coordinates as
// strings.
type Place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p Place) Location() (location.Location, error) {
	return location.Parse(p.Lat, p.Lon)
}

type reverseResponse struct {
	Address Address `json:"address"`
	Error   string  `json:"error"`
}

type Client struct {
	baseURL   string
	userAgent string
	language  string
	client    *http.Client
	limiter   *rate.Limiter
	cache     *cache.Cache
	logger    *zap.Logger
	tele      *telemetry.Telemetry
}

func NewClientWithConfig(cfg config.GeocodingConfig, logger *zap.Logger, tele *telemetry.Telemetry) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	var c *cache.Cache
	if cfg.CacheTTL > 0 {
		ttl := time.Duration(cfg.CacheTTL) * time.Second
		c = cache.New(ttl, 2*ttl)
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
		cache:   c,
		logger:  logger,
		tele:    tele,
	}
}

// Reverse maps coordinates to an address.
func (c *Client) Reverse(ctx context.Context, loc location.Location) (Address, error) {
	ctx, span := c.tele.StartSpan(ctx, "geocoding.Reverse",
		attribute.Float64("lat", loc.Lat()),
		attribute.Float64("lng", loc.Lng()))
	defer span.End()

	cacheKey := "reverse_" + loc.String()
	if cached, ok := c.fromCache(cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached.(Address), nil
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", fmt.Sprintf("%f", loc.Lat()))
	q.Set("lon", fmt.Sprintf("%f", loc.Lng()))

	var payload reverseResponse
	if err := c.get(ctx, "/reverse", q, &payload); err != nil {
		c.tele.RecordError(ctx, err, map[string]interface{}{"location": loc.String()})
		return Address{}, err
	}

	if payload.Error != "" {
		c.logger.Debug("Reverse geocoder returned no address",
			zap.String("location", loc.String()),
			zap.String("reason", payload.Error))
	}

	c.toCache(cacheKey, payload.Address)
	return payload.Address, nil
}

// Search maps a free-text query to matches, best first. An empty result is
// returned as an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	ctx, span := c.tele.StartSpan(ctx, "geocoding.Search", attribute.String("query", query))
	defer span.End()

	cacheKey := "search_" + strings.ToLower(query)
	if cached, ok := c.fromCache(cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached.([]Place), nil
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)

	var places []Place
	if err := c.get(ctx, "/search", q, &places); err != nil {
		c.tele.RecordError(ctx, err, map[string]interface{}{"query": query})
		return nil, err
	}
	if places == nil {
		places = []Place{}
	}

	span.SetAttributes(attribute.Int("results", len(places)))
	c.toCache(cacheKey, places)
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}

	if c.language != "" {
		q.Set("accept-language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocoder response: %w", err)
	}
	return nil
}

func (c *Client) fromCache(key string) (interface{}, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Client) toCache(key string, v interface{}) {
	if c.cache == nil {
		return
	}
	c.cache.Set(key, v, cache.DefaultExpiration)
}
