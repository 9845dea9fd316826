package http

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// BackoffConfig controls retries of a request. A nil config disables retries.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// RetryOn decides whether a response status is retried. Defaults to 429 and 5xx.
	RetryOn func(status int) bool
}

// DefaultBackoff retries three times starting at 200ms.
func DefaultBackoff() *BackoffConfig {
	return &BackoffConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (b *BackoffConfig) retries() int {
	if b == nil || b.MaxRetries < 0 {
		return 0
	}
	return b.MaxRetries
}

func (b *BackoffConfig) shouldRetry(ctx context.Context, resp *rawResponse, err error) bool {
	if b == nil || ctx.Err() != nil {
		return false
	}
	if err != nil && IsBreakerOpen(err) {
		return false
	}
	if resp == nil {
		return err != nil && !errors.Is(err, context.Canceled)
	}
	if b.RetryOn != nil {
		return b.RetryOn(resp.statusCode)
	}
	return resp.statusCode == http.StatusTooManyRequests || resp.statusCode >= 500
}

// delay doubles per attempt and is capped at MaxInterval
func (b *BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.MaxInterval > 0 && d >= b.MaxInterval {
			return b.MaxInterval
		}
	}
	return d
}

func (b *BackoffConfig) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(b.delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
