package mapview

import (
	"math"
	"strconv"
	"strings"

	"github.com/vzahanych/weather-dashboard/internal/location"
)

// Tile addresses one slippy-map tile.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// TileFor returns the Web Mercator tile containing loc at zoom z.
func TileFor(loc location.Location, z int) Tile {
	loc = location.World.Clamp(loc)
	n := math.Exp2(float64(z))
	latRad := loc.Lat() * math.Pi / 180

	x := int(math.Floor((loc.Lng() + 180) / 360 * n))
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	limit := int(n) - 1
	return Tile{X: clampInt(x, 0, limit), Y: clampInt(y, 0, limit), Z: z}
}

// URL fills a {z}/{x}/{y} template.
func (t Tile) URL(template string) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	).Replace(template)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
