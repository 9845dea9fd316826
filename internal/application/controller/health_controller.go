package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"weather-inference/internal/domain/model"
	"weather-inference/internal/domain/usecase/health"
)

type HealthController struct {
	api     *echo.Group
	useCase health.UseCase
}

func NewHealthController(api *echo.Group, useCase health.UseCase) *HealthController {
	return &HealthController{api: api, useCase: useCase}
}

// InitHealthRoutes registers GET and HEAD /health; HEAD serves load balancer probes
func (controller *HealthController) InitHealthRoutes() {
	controller.api.GET("/health", controller.CheckHealth)
	controller.api.HEAD("/health", controller.CheckHealth)
}

// CheckHealth godoc
// @Summary Component health
// @Description Reports Redis and queue health. UNKNOWN components do not bring the status down
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Failure 503 {object} model.HealthResponse
// @Router /health [get]
func (controller *HealthController) CheckHealth(c echo.Context) error {
	response := controller.useCase.CheckHealth(c.Request().Context())

	status := http.StatusOK
	if response.Status == model.StatusDown {
		status = http.StatusServiceUnavailable
	}
	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSON(status, response)
}
