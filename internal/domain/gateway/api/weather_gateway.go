package api

import (
	"context"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/model/external"
)

// WeatherGateway defines the interface for the live weather provider
type WeatherGateway interface {
	// Fetch returns the current observation at the location's coordinates.
	// Non 2xx responses and transport failures are returned as *entity.UpstreamFetchError.
	Fetch(ctx context.Context, location entity.Location) (*external.Observation, error)
}
