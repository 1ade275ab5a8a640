// Package geolocation supplies a one-shot, best-effort current position.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	// ErrUnsupported means no position source is configured.
	ErrUnsupported = errors.New("geolocation is not supported")
	// ErrUnavailable means the source was asked and could not answer.
	ErrUnavailable = errors.New("position unavailable")
)

// Provider answers a single "where am I" request. There is no continuous
// tracking.
type Provider interface {
	Locate(ctx context.Context) (location.Location, error)
	Name() string
}

func NewProviderWithConfig(cfg config.GeolocationConfig, logger *zap.Logger, tele *telemetry.Telemetry) (Provider, error) {
	switch cfg.Provider {
	case "ip":
		client := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
		return NewIPProvider(cfg.BaseURL, client, logger, tele), nil
	case "static":
		loc, err := location.New(cfg.Latitude, cfg.Longitude)
		if err != nil {
			return nil, fmt.Errorf("static geolocation: %w", err)
		}
		return NewStaticProvider(loc), nil
	case "", "none":
		return Unsupported{}, nil
	default:
		return nil, fmt.Errorf("unknown geolocation provider %q", cfg.Provider)
	}
}

type StaticProvider struct {
	loc location.Location
}

func NewStaticProvider(loc location.Location) *StaticProvider {
	return &StaticProvider{loc: loc}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Locate(ctx context.Context) (location.Location, error) {
	if err := ctx.Err(); err != nil {
		return location.Location{}, err
	}
	return p.loc, nil
}

// Unsupported is the provider used when geolocation is switched off.
type Unsupported struct{}

func (Unsupported) Name() string { return "none" }

func (Unsupported) Locate(context.Context) (location.Location, error) {
	return location.Location{}, ErrUnsupported
}
