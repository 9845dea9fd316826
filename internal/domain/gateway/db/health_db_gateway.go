package db

import (
	"context"

	"weather-inference/internal/domain/model"
)

// HealthDBGateway reports the state of the datastore holding locks and rate limit windows
type HealthDBGateway interface {
	Health(ctx context.Context) model.ComponentHealthStatus
}
