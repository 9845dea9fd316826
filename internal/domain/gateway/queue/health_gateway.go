package queue

import (
	"context"

	"weather-inference/internal/domain/model"
)

// HealthGateway tracks the queue workers of the process
type HealthGateway interface {
	Health(ctx context.Context) model.ComponentHealthStatus
	RegisterWorker(name, queueName string)
	MarkStopped(name string)
}
