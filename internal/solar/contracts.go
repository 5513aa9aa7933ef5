package solar

import (
	"context"
	"errors"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

var (
	// ErrNotFound means the geocoder could not resolve the address.
	ErrNotFound = errors.New("address not found")
	// ErrUnavailable means the production-modeling service returned no estimate.
	ErrUnavailable = errors.New("production model unavailable")
)

// Geocoder resolves a service address to a coordinate. On failure the pipeline
// substitutes a regional-average coordinate and records a degraded flag; a
// geocoding failure is never surfaced as an error.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinate, error)
}

// ProductionModeler estimates annual kWh production for a system at a
// location. On ErrUnavailable the pipeline falls back to the fixed-yield
// heuristic and marks the projection estimated rather than modeled.
type ProductionModeler interface {
	ModelProduction(ctx context.Context, coord Coordinate, systemKW float64) (float64, error)
}
