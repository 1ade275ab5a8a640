package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// IPProvider resolves the caller's approximate position from its public IP
// using an ip-api.com style endpoint.
type IPProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
}

func NewIPProvider(baseURL string, client *http.Client, logger *zap.Logger, tele *telemetry.Telemetry) *IPProvider {
	return &IPProvider{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
		tele:    tele,
	}
}

func (p *IPProvider) Name() string { return "ip" }

func (p *IPProvider) Locate(ctx context.Context) (location.Location, error) {
	ctx, span := p.tele.StartSpan(ctx, "geolocation.Locate", attribute.String("provider", p.Name()))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return location.Location{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.tele.RecordError(ctx, err, nil)
		return location.Location{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return location.Location{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return location.Location{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	if payload.Status != "success" {
		return location.Location{}, fmt.Errorf("%w: %s", ErrUnavailable, payload.Message)
	}

	loc, err := location.New(payload.Lat, payload.Lon)
	if err != nil {
		return location.Location{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.logger.Debug("Resolved position from IP",
		zap.String("location", loc.String()),
		zap.String("city", payload.City))

	return loc, nil
}
