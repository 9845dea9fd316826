package redis

import (
	"context"
	"time"
)

// HealthCheck is the result of pinging the server
type HealthCheck struct {
	Healthy   bool   `json:"healthy"`
	Address   string `json:"address"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Check pings the server within timeout
func (c *Client) Check(ctx context.Context, timeout time.Duration) HealthCheck {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := c.Ping(ctx)
	check := HealthCheck{
		Healthy:   err == nil,
		Address:   c.config.Addr(),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Error = err.Error()
	}
	return check
}
