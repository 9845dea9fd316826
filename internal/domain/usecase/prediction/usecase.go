package prediction

import (
	"context"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/sink"
)

// FailureMode selects how a failing location affects the rest of the run
type FailureMode string

const (
	// FailureModeAllOrNothing aborts the run on the first failing location
	FailureModeAllOrNothing FailureMode = "all-or-nothing"
	// FailureModeIsolated records failing locations and keeps going
	FailureModeIsolated FailureMode = "isolated"
)

// Outcome is what RunAndPersist produced
type Outcome struct {
	Batch    *entity.ResultBatch  `json:"batch"`
	Artifact *sink.StagedArtifact `json:"artifact,omitempty"`
}

type UseCase interface {
	// Run predicts every location in order with the model of cfg.
	// In all-or-nothing mode any failure returns a nil batch. In isolated mode
	// the partial batch is returned together with a *entity.RunError.
	Run(ctx context.Context, cfg entity.RunConfig, locations []entity.Location) (*entity.ResultBatch, error)

	// RunAndPersist runs, publishes the batch to cfg.OutputKey and notifies downstream
	RunAndPersist(ctx context.Context, cfg entity.RunConfig, locations []entity.Location) (*Outcome, error)

	// FailureMode reports the configured failure mode
	FailureMode() FailureMode
}
