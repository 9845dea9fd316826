package model

import (
	"context"

	"weather-inference/internal/domain/feature"
)

// Gateway loads trained classifiers from the model registry
type Gateway interface {
	// Load makes the model behind uri ready for prediction.
	// Failures are returned as *entity.ModelLoadError.
	Load(ctx context.Context, uri string) (Predictor, error)
}

// Predictor is a loaded classifier
type Predictor interface {
	// Predict returns the category code for one feature vector
	Predict(ctx context.Context, vector feature.Vector) (int, error)
	// URI is the model identifier the predictor was loaded from
	URI() string
}
