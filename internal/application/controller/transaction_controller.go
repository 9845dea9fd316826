package controller

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"weather-inference/internal/domain/usecase/transaction"
	"weather-inference/pkg/log"
	"weather-inference/pkg/msg"
	"weather-inference/pkg/redis"
)

// RateLimiter counts requests per key. *redis.FixedWindowLimiter implements it.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (redis.RateLimitResult, error)
}

type TransactionController struct {
	api     *echo.Group
	useCase transaction.UseCase
	limiter RateLimiter
}

// NewTransactionController creates the sample controller; a nil limiter disables rate limiting
func NewTransactionController(api *echo.Group, useCase transaction.UseCase, limiter RateLimiter) *TransactionController {
	return &TransactionController{api: api, useCase: useCase, limiter: limiter}
}

// InitTransactionRoutes initializes sample transaction routes
func (controller *TransactionController) InitTransactionRoutes() {
	controller.api.GET("/current-transactions", controller.CurrentTransactions, controller.rateLimit)
}

// CurrentTransactions godoc
// @Summary Get a random transaction
// @Description Returns one random dataset row in split orientation, stamped with the current time in milliseconds
// @Tags transactions
// @Produce json
// @Success 200 {object} model.TransactionSample
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Router /current-transactions [get]
func (controller *TransactionController) CurrentTransactions(c echo.Context) error {
	sample, err := controller.useCase.CurrentTransaction(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, sample)
}

// rateLimit rejects clients over the window limit. A limiter outage lets requests through.
func (controller *TransactionController) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if controller.limiter == nil {
			return next(c)
		}

		clientIP := c.RealIP()
		result, err := controller.limiter.Allow(c.Request().Context(), "current-transactions:"+clientIP)
		if err != nil {
			log.Warn(msg.GetMessage("transaction.limiter-failed", err), zap.Error(err))
			return next(c)
		}

		header := c.Response().Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			header.Set("Retry-After", strconv.Itoa(int(math.Ceil(result.ResetAfter.Seconds()))))
			log.Info(msg.GetMessage("transaction.rate-limited", clientIP), zap.String("client_ip", clientIP))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
		return next(c)
	}
}
