package health

import (
	"context"

	"weather-inference/internal/domain/gateway/db"
	"weather-inference/internal/domain/gateway/queue"
	"weather-inference/internal/domain/model"
)

type healthUseCase struct {
	dbGateway    db.HealthDBGateway
	queueGateway queue.HealthGateway
}

func NewHealthUseCase(dbGateway db.HealthDBGateway, queueGateway queue.HealthGateway) UseCase {
	return &healthUseCase{
		dbGateway:    dbGateway,
		queueGateway: queueGateway,
	}
}

func (useCase *healthUseCase) CheckHealth(ctx context.Context) model.HealthResponse {
	components := map[string]model.ComponentHealthStatus{
		"redis": unknownIfNil(ctx, useCase.dbGateway),
		"queue": unknownIfNil(ctx, useCase.queueGateway),
	}

	overallStatus := model.StatusUp
	for _, component := range components {
		if component.Status == model.StatusDown {
			overallStatus = model.StatusDown
		}
	}

	return model.HealthResponse{
		Status:     overallStatus,
		Components: components,
	}
}

type healthChecker interface {
	Health(ctx context.Context) model.ComponentHealthStatus
}

func unknownIfNil(ctx context.Context, checker healthChecker) model.ComponentHealthStatus {
	if checker == nil {
		return model.ComponentHealthStatus{
			Status:  model.StatusUnknown,
			Details: map[string]string{"message": "not configured"},
		}
	}
	return checker.Health(ctx)
}
