// Package weather is the client of the forecast/summary backend.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

type Client struct {
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	cache   *cache.Cache
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

func NewClientWithConfig(cfg config.WeatherConfig, logger *zap.Logger, tele *telemetry.Telemetry) *Client {
	maxFailures := cfg.Breaker.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weather-backend",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    time.Duration(cfg.Breaker.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Breaker.Timeout) * time.Second,
		// A request abandoned by its caller says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	var c *cache.Cache
	if cfg.CacheTTL > 0 {
		ttl := time.Duration(cfg.CacheTTL) * time.Second
		c = cache.New(ttl, 2*ttl)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		circuit: cb,
		cache:   c,
		logger:  logger,
		tele:    tele,
	}
}

// Forecast returns the per-day forecast in the order the backend sends it.
func (c *Client) Forecast(ctx context.Context, loc location.Location) ([]ForecastDay, error) {
	ctx, span := c.tele.StartSpan(ctx, "weather.Forecast",
		attribute.Float64("lat", loc.Lat()),
		attribute.Float64("lng", loc.Lng()))
	defer span.End()

	cacheKey := "forecast_" + loc.String()
	if cached, ok := c.fromCache(cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached.([]ForecastDay), nil
	}

	c.logger.Debug("Fetching weather forecast", zap.String("location", loc.String()))

	var days []ForecastDay
	if err := c.get(ctx, "/api/weather/forecast", loc, &days); err != nil {
		c.tele.RecordError(ctx, err, map[string]interface{}{"location": loc.String()})
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	if days == nil {
		days = []ForecastDay{}
	}

	span.SetAttributes(attribute.Int("days", len(days)))
	c.toCache(cacheKey, days)
	return days, nil
}

// Summary returns the weekly aggregate, remapped from the backend's field
// names.
func (c *Client) Summary(ctx context.Context, loc location.Location) (WeeklySummary, error) {
	ctx, span := c.tele.StartSpan(ctx, "weather.Summary",
		attribute.Float64("lat", loc.Lat()),
		attribute.Float64("lng", loc.Lng()))
	defer span.End()

	cacheKey := "summary_" + loc.String()
	if cached, ok := c.fromCache(cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached.(WeeklySummary), nil
	}

	c.logger.Debug("Fetching weekly summary", zap.String("location", loc.String()))

	var payload summaryPayload
	if err := c.get(ctx, "/api/weather/summary", loc, &payload); err != nil {
		c.tele.RecordError(ctx, err, map[string]interface{}{"location": loc.String()})
		return WeeklySummary{}, fmt.Errorf("fetch summary: %w", err)
	}

	summary := payload.toSummary()
	c.toCache(cacheKey, summary)
	return summary, nil
}

func (c *Client) get(ctx context.Context, path string, loc location.Location, out interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}

	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(loc.Lat(), 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lng(), 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return err
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
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

// Ready reports ErrCircuitOpen while the backend is considered down.
func (c *Client) Ready(context.Context) error {
	if c.circuit.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return nil
}
