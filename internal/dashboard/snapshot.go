package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vzahanych/weather-dashboard/internal/location"
	"github.com/vzahanych/weather-dashboard/internal/mapview"
)

// Snapshot is a read-only copy of everything the dashboard displays.
type Snapshot struct {
	Location   *location.Location `json:"location"`
	PlaceName  string             `json:"placeName,omitempty"`
	Generation uint64             `json:"generation"`
	Map        mapview.View       `json:"map"`
	Forecast   ForecastState      `json:"forecast"`
	Summary    SummaryState       `json:"summary"`
}

// Snapshot copies the current state. Safe for concurrent use.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	var current *location.Location
	if c.current != nil {
		loc := *c.current
		current = &loc
	}
	generation := c.generation
	c.mu.RUnlock()

	snap := Snapshot{
		Location:   current,
		Generation: generation,
		Map:        c.mapSel.View(),
		Forecast:   c.forecast.State(),
		Summary:    c.summary.State(),
	}
	if current != nil {
		snap.PlaceName = c.place.Name(*current)
	}
	return snap
}

// WriteText prints the snapshot for a terminal.
func WriteText(w io.Writer, snap Snapshot) error {
	var b strings.Builder

	if snap.Location == nil {
		b.WriteString("No location selected.\n")
	} else {
		fmt.Fprintf(&b, "Weather for %s (%s)\n\n", snap.PlaceName, snap.Location)
	}

	if snap.Forecast.Loading {
		b.WriteString("Loading forecast...\n")
	} else {
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\t\tTEMPERATURE\tENERGY")
		for _, card := range snap.Forecast.Cards {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", card.Date, card.Glyph, card.Temperature, card.Energy)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	b.WriteString("\n")
	if snap.Summary.Loading {
		b.WriteString("Loading summary...\n")
	} else {
		for _, line := range snap.Summary.Lines {
			b.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
