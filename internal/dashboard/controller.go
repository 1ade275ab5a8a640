// Package dashboard owns the selected location and keeps the map, forecast,
// summary and place name in step with it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/geocoding"
	"github.com/vzahanych/weather-dashboard/internal/geolocation"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/internal/mapview"
	"github.com/vzahanych/weather-dashboard/internal/weather"
	"go.uber.org/zap"
)

// Kinds label the collaborator calls in logs and metrics.
const (
	KindForecast       = "forecast"
	KindSummary        = "summary"
	KindReverseGeocode = "reverse_geocode"
	KindSearch         = "search"
	KindGeolocation    = "geolocation"
)

// ErrEmptyQuery is returned by Search for a blank query; nothing is requested.
var ErrEmptyQuery = errors.New("empty search query")

// ErrSuperseded is returned by Search when the location changed, or a newer
// search was issued, while the geocoder was answering.
var ErrSuperseded = errors.New("search superseded by a newer selection")

// WeatherSource is the forecast/summary backend.
type WeatherSource interface {
	Forecast(ctx context.Context, loc location.Location) ([]weather.ForecastDay, error)
	Summary(ctx context.Context, loc location.Location) (weather.WeeklySummary, error)
}

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	Reverse(ctx context.Context, loc location.Location) (geocoding.Address, error)
	Search(ctx context.Context, query string) ([]geocoding.Place, error)
}

// Consumer reacts to location changes. Implementations must not block.
type Consumer interface {
	LocationChanged(ctx context.Context, loc location.Location)
}

// MetricsRecorder interface for recording collaborator metrics
type MetricsRecorder interface {
	RecordFetch(ctx context.Context, kind string, success bool)
	RecordStaleDiscard(ctx context.Context, kind string)
}

// Dependencies are the collaborators of a Controller. Locator and Metrics
// may be nil.
type Dependencies struct {
	Weather  WeatherSource
	Geocoder Geocoder
	Locator  geolocation.Provider
	Map      config.MapConfig
	Metrics  MetricsRecorder
}

// Controller is the single owner of the selected location. The map selector
// and Search are its only writers; every change is fanned out once to the
// consumers, in the order the changes were made.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc

	// writeMu serializes set+notify so consumers see changes in order.
	writeMu sync.Mutex

	mu         sync.RWMutex
	current    *location.Location
	generation uint64
	searchSeq  uint64
	// userSeq counts explicit selections; geolocation fills do not bump it.
	userSeq uint64

	geocoder Geocoder
	locator  geolocation.Provider
	metrics  MetricsRecorder

	mapSel    *mapview.Selector
	forecast  *ForecastView
	summary   *SummaryView
	place     *placeView
	consumers []Consumer

	tasks  *sync.WaitGroup
	logger *zap.Logger
}

// NewController wires the displays to a new, empty location state. ctx bounds
// the lifetime of every fetch the controller starts.
func NewController(ctx context.Context, deps Dependencies, logger *zap.Logger) *Controller {
	ctx, cancel := context.WithCancel(ctx)
	tasks := &sync.WaitGroup{}

	locator := deps.Locator
	if locator == nil {
		locator = geolocation.Unsupported{}
	}

	c := &Controller{
		ctx:      ctx,
		cancel:   cancel,
		geocoder: deps.Geocoder,
		locator:  locator,
		metrics:  deps.Metrics,
		mapSel:   mapview.NewSelector(deps.Map, locator, logger),
		forecast: NewForecastView(deps.Weather, tasks, logger, deps.Metrics),
		summary:  NewSummaryView(deps.Weather, tasks, logger, deps.Metrics),
		place:    newPlaceView(deps.Geocoder, tasks, logger, deps.Metrics),
		tasks:    tasks,
		logger:   logger.With(zap.String("component", "controller")),
	}
	c.mapSel.Bind(c)
	c.consumers = []Consumer{c.mapSel, c.place, c.forecast, c.summary}

	return c
}

// Mount starts the best-effort geolocation lookups of the root view and the
// map. Neither blocks; an answer only fills a location that is still unset.
func (c *Controller) Mount() {
	c.tasks.Add(2)
	go func() {
		defer c.tasks.Done()
		c.locateInitial()
	}()
	go func() {
		defer c.tasks.Done()
		c.mapSel.Mount(c.ctx)
	}()
}

func (c *Controller) locateInitial() {
	loc, err := c.locator.Locate(c.ctx)
	if err != nil {
		if c.metrics != nil && !errors.Is(err, geolocation.ErrUnsupported) {
			c.metrics.RecordFetch(c.ctx, KindGeolocation, false)
		}
		c.logger.Warn("Error getting location", zap.String("provider", c.locator.Name()), zap.Error(err))
		return
	}
	if c.metrics != nil {
		c.metrics.RecordFetch(c.ctx, KindGeolocation, true)
	}

	if !c.SetLocationIfUnset(loc) {
		c.logger.Debug("Ignoring late geolocation answer", zap.String("location", loc.String()))
	}
}

// SetLocation replaces the location on the user's behalf. It reports false
// when loc equals the current location, in which case nothing is refetched.
func (c *Controller) SetLocation(loc location.Location) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.userSeq++
	c.mu.Unlock()

	return c.setLocked(loc, func(*location.Location) bool { return true })
}

// SetLocationIfUnset sets loc only when no location has been chosen yet.
func (c *Controller) SetLocationIfUnset(loc location.Location) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.setLocked(loc, func(current *location.Location) bool { return current == nil })
}

// setLocked must be called with writeMu held.
func (c *Controller) setLocked(loc location.Location, allow func(current *location.Location) bool) bool {
	c.mu.Lock()
	if !allow(c.current) || (c.current != nil && c.current.Equal(loc)) {
		c.mu.Unlock()
		return false
	}
	c.current = &loc
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	c.logger.Info("Location changed",
		zap.String("location", loc.String()),
		zap.Uint64("generation", generation))

	for _, consumer := range c.consumers {
		consumer.LocationChanged(c.ctx, loc)
	}
	return true
}

// Click is a map click at lat/lng.
func (c *Controller) Click(lat, lng float64) (location.Location, error) {
	return c.mapSel.Click(lat, lng)
}

// Search geocodes query and moves to its best match. A blank query is a
// no-op reported as ErrEmptyQuery. On error or an empty result the location
// is left unchanged. Only a newer search or an explicit SetLocation
// supersedes a search in flight; a geolocation fill does not.
func (c *Controller) Search(ctx context.Context, query string) (location.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return location.Location{}, ErrEmptyQuery
	}

	c.mu.Lock()
	c.searchSeq++
	seq := c.searchSeq
	userSeq := c.userSeq
	c.mu.Unlock()

	reqLogger := c.logger.With(zap.String("query", query))

	places, err := c.geocoder.Search(ctx, query)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordFetch(ctx, KindSearch, false)
		}
		reqLogger.Error("Search failed", zap.Error(err))
		return location.Location{}, fmt.Errorf("search %q: %w", query, err)
	}
	if c.metrics != nil {
		c.metrics.RecordFetch(ctx, KindSearch, true)
	}

	if len(places) == 0 {
		reqLogger.Info("Search returned no results")
		return location.Location{}, fmt.Errorf("search %q: %w", query, geocoding.ErrNoResults)
	}

	loc, err := places[0].Location()
	if err != nil {
		reqLogger.Error("Search returned unusable coordinates", zap.Error(err))
		return location.Location{}, fmt.Errorf("search %q: %w", query, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	stale := seq != c.searchSeq || userSeq != c.userSeq
	c.mu.RUnlock()
	if stale {
		if c.metrics != nil {
			c.metrics.RecordStaleDiscard(ctx, KindSearch)
		}
		reqLogger.Info("Discarding superseded search result", zap.String("location", loc.String()))
		return loc, ErrSuperseded
	}

	c.mu.Lock()
	c.userSeq++
	c.mu.Unlock()

	c.setLocked(loc, func(*location.Location) bool { return true })
	return loc, nil
}

// Location returns the current location, if any.
func (c *Controller) Location() (location.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return location.Location{}, false
	}
	return *c.current, true
}

// Map exposes the selector for viewport manipulation.
func (c *Controller) Map() *mapview.Selector {
	return c.mapSel
}

// Wait blocks until every lookup and fetch started so far has settled.
func (c *Controller) Wait() {
	c.tasks.Wait()
}

// Close cancels in-flight work and waits for it to return.
func (c *Controller) Close() {
	c.cancel()
	c.tasks.Wait()
}
