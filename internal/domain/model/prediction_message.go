package model

import "time"

// PredictionPublishedMessage announces a batch that reached object storage
type PredictionPublishedMessage struct {
	RunID        string    `json:"run_id"`
	ModelVariant string    `json:"model_variant"`
	ObjectKey    string    `json:"object_key"`
	Location     string    `json:"location"`
	LabelSource  string    `json:"label_source"`
	Results      int       `json:"results"`
	Failures     int       `json:"failures"`
	PublishedAt  time.Time `json:"published_at"`
}

// PredictionRequestMessage asks for an on-demand run of one variant
type PredictionRequestMessage struct {
	ModelVariant string `json:"model_variant" validate:"required"`
}
