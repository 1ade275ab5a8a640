package weather

import (
	"fmt"
	"time"
)

// ForecastDay is one day of the forecast as sent by the backend.
type ForecastDay struct {
	Date            string  `json:"date"`
	WeatherCode     int     `json:"weatherCode"`
	MinTemperature  float64 `json:"minTemperature"`
	MaxTemperature  float64 `json:"maxTemperature"`
	EstimatedEnergy float64 `json:"estimatedEnergy"`
}

// Day parses Date, which the backend sends either as a plain date or as a
// full RFC 3339 timestamp.
func (d ForecastDay) Day() (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, d.Date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized forecast date %q", d.Date)
}

func (d ForecastDay) Icon() Icon {
	return IconFor(d.WeatherCode)
}

// WeeklySummary aggregates the forecast window.
type WeeklySummary struct {
	MinTemperature float64 `json:"minTemperature"`
	MaxTemperature float64 `json:"maxTemperature"`
	AvgPressure    float64 `json:"avgPressure"`
	AvgSunExposure float64 `json:"avgSunExposure"`
	Comment        string  `json:"comment"`
}

// summaryPayload is the wire shape of the summary endpoint.
type summaryPayload struct {
	MinTemperature     float64 `json:"minTemperature"`
	MaxTemperature     float64 `json:"maxTemperature"`
	AveragePressure    float64 `json:"averagePressure"`
	AverageSunExposure float64 `json:"averageSunExposure"`
	WeekSummary        string  `json:"weekSummary"`
}

func (p summaryPayload) toSummary() WeeklySummary {
	return WeeklySummary{
		MinTemperature: p.MinTemperature,
		MaxTemperature: p.MaxTemperature,
		AvgPressure:    p.AveragePressure,
		AvgSunExposure: p.AverageSunExposure,
		Comment:        p.WeekSummary,
	}
}
