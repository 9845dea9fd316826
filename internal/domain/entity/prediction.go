package entity

import "time"

// ModelVariant identifies one of the trained classifiers sharing the feature schema.
type ModelVariant string

const (
	VariantHistorical ModelVariant = "historical"
	VariantForecast6h ModelVariant = "forecast_6h"
)

// RunConfig binds a model variant to the model it runs and the key its batch is published under.
type RunConfig struct {
	ModelVariant ModelVariant `json:"model_variant" mapstructure:"model-variant" validate:"required,oneof=historical forecast_6h"`
	ModelURI     string       `json:"model_uri" mapstructure:"model-uri" validate:"required"`
	OutputKey    string       `json:"output_key" mapstructure:"output-key" validate:"required"`
}

// PredictionResult is the outcome for one location in one run.
type PredictionResult struct {
	Location       Location     `json:"location"`
	PredictedLabel string       `json:"prediction"`
	PredictedCode  int          `json:"prediction_code"`
	ModelVariant   ModelVariant `json:"model_type"`
	Timestamp      time.Time    `json:"timestamp"`
}

// LocationFailure records a location whose unit of work failed in isolated mode.
type LocationFailure struct {
	Location Location `json:"location"`
	Err      error    `json:"-"`
	Message  string   `json:"error"`
}

// ResultBatch is every result of one run of one variant, in configured location order.
type ResultBatch struct {
	RunID        string             `json:"run_id"`
	ModelVariant ModelVariant       `json:"model_variant"`
	LabelSource  string             `json:"label_source"`
	Results      []PredictionResult `json:"results"`
	Failures     []LocationFailure  `json:"failures,omitempty"`
}

// Len returns the number of successful results.
func (b *ResultBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Results)
}
