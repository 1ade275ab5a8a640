package handlers

import "github.com/vzahanych/weather-dashboard/internal/server/utils"

// LocationRequest is a map click. Pointers tell a missing field from 0.
type LocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type SearchRequest struct {
	Query string `json:"query" validate:"notblank,max=200"`
}

type PanRequest struct {
	DLat *float64 `json:"dLat" validate:"required,min=-180,max=180"`
	DLng *float64 `json:"dLng" validate:"required,min=-360,max=360"`
}

type ZoomRequest struct {
	Zoom *int `json:"zoom" validate:"required,min=0,max=30"`
}

// ErrorResponse represents an error response with validation
type ErrorResponse struct {
	Error   string                  `json:"error" validate:"required,min=1,max=500"`
	Code    string                  `json:"code,omitempty" validate:"omitempty,min=1,max=50"`
	Details string                  `json:"details,omitempty" validate:"omitempty,max=1000"`
	Fields  []utils.ValidationError `json:"fields,omitempty"`
}

// HealthResponse represents health check response with validation
type HealthResponse struct {
	Status    string            `json:"status" validate:"required,oneof=ok alive ready unavailable"`
	Uptime    string            `json:"uptime" validate:"required"`
	Timestamp string            `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Checks    map[string]string `json:"checks,omitempty"`
}
