// Package mapview models the interactive world map: a viewport bounded to the
// Web Mercator world, a marker, click selection and fly-to recentring.
package mapview

import (
	"context"
	"errors"
	"sync"

	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/geolocation"
	"github.com/vzahanych/weather-dashboard/internal/location"
	"go.uber.org/zap"
)

// Setter is the owner of the shared location. SetLocationIfUnset is used
// for geolocation answers, which must not override a user's choice.
type Setter interface {
	SetLocation(loc location.Location) bool
	SetLocationIfUnset(loc location.Location) bool
}

type Viewport struct {
	Center location.Location `json:"center"`
	Zoom   int               `json:"zoom"`
}

// View is a copy of the selector state for rendering.
type View struct {
	Viewport   Viewport           `json:"viewport"`
	Marker     *location.Location `json:"marker,omitempty"`
	MarkerTile *Tile              `json:"markerTile,omitempty"`
	TileURL    string             `json:"tileUrl,omitempty"`
	Bounds     location.Bounds    `json:"bounds"`
	MinZoom    int                `json:"minZoom"`
	MaxZoom    int                `json:"maxZoom"`
}

type Selector struct {
	mu       sync.RWMutex
	cfg      config.MapConfig
	viewport Viewport
	marker   *location.Location
	supplied bool
	setter   Setter
	locator  geolocation.Provider
	logger   *zap.Logger
}

func NewSelector(cfg config.MapConfig, locator geolocation.Provider, logger *zap.Logger) *Selector {
	if cfg.MinZoom <= 0 {
		cfg.MinZoom = 2
	}
	if cfg.MaxZoom < cfg.MinZoom {
		cfg.MaxZoom = 18
	}
	if cfg.FlyToStep <= 0 {
		cfg.FlyToStep = 5
	}

	s := &Selector{
		cfg:     cfg,
		locator: locator,
		logger:  logger.With(zap.String("component", "map")),
	}
	s.viewport = Viewport{
		Center: location.MustNew(0, 0),
		Zoom:   s.clampZoom(cfg.InitialZoom),
	}
	return s
}

// Bind connects the selector to the owner of the location.
func (s *Selector) Bind(setter Setter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setter = setter
}

// Mount looks up the current position itself when nobody has supplied a
// location yet. Unsupported or denied geolocation leaves the map empty.
func (s *Selector) Mount(ctx context.Context) {
	s.mu.RLock()
	supplied := s.supplied
	setter := s.setter
	s.mu.RUnlock()

	if supplied || s.locator == nil || setter == nil {
		return
	}

	loc, err := s.locator.Locate(ctx)
	if err != nil {
		if errors.Is(err, geolocation.ErrUnsupported) {
			s.logger.Info("Geolocation is not supported, waiting for a click or search")
		} else {
			s.logger.Warn("Error getting location", zap.Error(err))
		}
		return
	}

	if !setter.SetLocationIfUnset(loc) {
		s.logger.Debug("Ignoring geolocation, a location is already selected",
			zap.String("location", loc.String()))
	}
}

// LocationChanged shows the marker at loc and flies there, zooming in by the
// configured step.
func (s *Selector) LocationChanged(_ context.Context, loc location.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supplied = true
	marker := loc
	s.marker = &marker
	s.viewport = Viewport{
		Center: location.World.Clamp(loc),
		Zoom:   s.clampZoom(s.viewport.Zoom + s.cfg.FlyToStep),
	}
}

// Click turns a map click into a location, shows it and reports it upward.
func (s *Selector) Click(lat, lng float64) (location.Location, error) {
	loc, err := location.New(lat, lng)
	if err != nil {
		return location.Location{}, err
	}

	s.mu.Lock()
	marker := loc
	s.marker = &marker
	setter := s.setter
	s.mu.Unlock()

	if setter != nil {
		setter.SetLocation(loc)
	}
	return loc, nil
}

// Pan moves the viewport center, clamped to the world bounds.
func (s *Selector) Pan(dLat, dLng float64) Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.viewport.Center
	s.viewport.Center = location.World.ClampCoords(c.Lat()+dLat, c.Lng()+dLng)
	return s.viewport
}

func (s *Selector) ZoomTo(zoom int) Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewport.Zoom = s.clampZoom(zoom)
	return s.viewport
}

func (s *Selector) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		Viewport: s.viewport,
		TileURL:  s.cfg.TileURL,
		Bounds:   location.World,
		MinZoom:  s.cfg.MinZoom,
		MaxZoom:  s.cfg.MaxZoom,
	}
	if s.marker != nil {
		marker := *s.marker
		tile := TileFor(marker, s.viewport.Zoom)
		v.Marker = &marker
		v.MarkerTile = &tile
	}
	return v
}

func (s *Selector) clampZoom(z int) int {
	return clampInt(z, s.cfg.MinZoom, s.cfg.MaxZoom)
}
