// Package location holds the coordinate value shared by every part of the
// dashboard.
package location

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrOutOfRange = errors.New("coordinates out of range")

// MercatorMaxLat is the latitude at which the Web Mercator projection turns
// the world into a square; tiles do not exist beyond it.
const MercatorMaxLat = 85.05112878

// Location is an immutable latitude/longitude pair. Construct it with New or
// Parse; the zero value is the point (0, 0).
type Location struct {
	lat float64
	lng float64
}

func New(lat, lng float64) (Location, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Location{}, fmt.Errorf("%w: lat=%v lng=%v", ErrOutOfRange, lat, lng)
	}
	return Location{lat: lat, lng: lng}, nil
}

// MustNew is New for literals known to be valid.
func MustNew(lat, lng float64) Location {
	loc, err := New(lat, lng)
	if err != nil {
		panic(err)
	}
	return loc
}

// Parse builds a Location from the decimal strings geocoders return.
func Parse(lat, lng string) (Location, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid longitude %q: %w", lng, err)
	}
	return New(la, ln)
}

func (l Location) Lat() float64 { return l.lat }
func (l Location) Lng() float64 { return l.lng }

func (l Location) Equal(other Location) bool {
	return l.lat == other.lat && l.lng == other.lng
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.lat, l.lng)
}

// MarshalJSON emits {"lat":..,"lng":..}.
func (l Location) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"lat":%s,"lng":%s}`,
		strconv.FormatFloat(l.lat, 'f', -1, 64),
		strconv.FormatFloat(l.lng, 'f', -1, 64))), nil
}

// Bounds is a south-west / north-east rectangle.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// World is the pannable area of the map.
var World = Bounds{South: -MercatorMaxLat, West: -180, North: MercatorMaxLat, East: 180}

func (b Bounds) Contains(l Location) bool {
	return l.lat >= b.South && l.lat <= b.North && l.lng >= b.West && l.lng <= b.East
}

// Clamp pulls l inside b.
func (b Bounds) Clamp(l Location) Location {
	return b.ClampCoords(l.lat, l.lng)
}

// ClampCoords is Clamp for raw coordinates that may lie outside the globe,
// e.g. a viewport center after a pan.
func (b Bounds) ClampCoords(lat, lng float64) Location {
	if math.IsNaN(lat) {
		lat = 0
	}
	if math.IsNaN(lng) {
		lng = 0
	}
	return Location{
		lat: math.Max(b.South, math.Min(b.North, lat)),
		lng: math.Max(b.West, math.Min(b.East, lng)),
	}
}
