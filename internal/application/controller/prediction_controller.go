package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/usecase/prediction"
	"weather-inference/pkg/msg"
)

type PredictionController struct {
	api       *echo.Group
	useCase   prediction.UseCase
	runs      map[entity.ModelVariant]entity.RunConfig
	locations []entity.Location
}

func NewPredictionController(api *echo.Group, useCase prediction.UseCase, runs []entity.RunConfig, locations []entity.Location) *PredictionController {
	byVariant := make(map[entity.ModelVariant]entity.RunConfig, len(runs))
	for _, run := range runs {
		byVariant[run.ModelVariant] = run
	}
	return &PredictionController{api: api, useCase: useCase, runs: byVariant, locations: locations}
}

// InitPredictionRoutes initializes prediction routes
func (controller *PredictionController) InitPredictionRoutes() {
	controller.api.POST("/predictions/:variant/run", controller.RunPrediction)
}

// RunPrediction godoc
// @Summary Run a prediction now
// @Description Predicts every configured location with the variant model and publishes the batch
// @Tags predictions
// @Produce json
// @Param variant path string true "Model variant" Enums(historical, forecast_6h)
// @Success 200 {object} prediction.Outcome "Published batch, failures included in isolated mode"
// @Failure 400 {object} map[string]string "Unknown variant or invalid run configuration"
// @Failure 502 {object} map[string]string "Weather provider failure"
// @Failure 503 {object} map[string]string "Model unavailable"
// @Failure 500 {object} map[string]string "Publication failure"
// @Router /predictions/{variant}/run [post]
func (controller *PredictionController) RunPrediction(c echo.Context) error {
	variant := entity.ModelVariant(c.Param("variant"))

	run, ok := controller.runs[variant]
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg.GetMessage("prediction.run.unknown-variant", variant)})
	}

	outcome, err := controller.useCase.RunAndPersist(c.Request().Context(), run, controller.locations)
	if err == nil {
		return c.JSON(http.StatusOK, outcome)
	}

	var uploadErr *entity.UploadError
	if outcome != nil && outcome.Artifact != nil && !errors.As(err, &uploadErr) {
		return c.JSON(http.StatusOK, outcome)
	}

	return c.JSON(statusOf(err), map[string]string{"error": err.Error()})
}

// statusOf maps domain errors to HTTP status codes
func statusOf(err error) int {
	var (
		fetchErr  *entity.UpstreamFetchError
		loadErr   *entity.ModelLoadError
		uploadErr *entity.UploadError
	)
	switch {
	case errors.Is(err, entity.ErrInvalidRunConfig):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &uploadErr):
		return http.StatusInternalServerError
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
