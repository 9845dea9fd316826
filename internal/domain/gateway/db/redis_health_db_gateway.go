package db

import (
	"context"
	"strconv"
	"time"

	"weather-inference/internal/domain/model"
	"weather-inference/pkg/redis"
)

type RedisHealthDBGateway struct {
	client  *redis.Client
	timeout time.Duration
}

var _ HealthDBGateway = (*RedisHealthDBGateway)(nil)

func NewRedisHealthDBGateway(client *redis.Client, timeout time.Duration) *RedisHealthDBGateway {
	return &RedisHealthDBGateway{client: client, timeout: timeout}
}

func (gateway *RedisHealthDBGateway) Health(ctx context.Context) model.ComponentHealthStatus {
	if gateway.client == nil {
		return model.ComponentHealthStatus{
			Status:  model.StatusUnknown,
			Details: map[string]string{"message": "redis is not configured"},
		}
	}

	check := gateway.client.Check(ctx, gateway.timeout)
	details := map[string]string{
		"address":    check.Address,
		"latency_ms": strconv.FormatInt(check.LatencyMs, 10),
	}

	if !check.Healthy {
		details["message"] = check.Error
		return model.ComponentHealthStatus{Status: model.StatusDown, Details: details}
	}

	details["message"] = string(model.StatusUp)
	return model.ComponentHealthStatus{Status: model.StatusUp, Details: details}
}
