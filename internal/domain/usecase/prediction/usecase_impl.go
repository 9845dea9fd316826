package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/feature"
	"weather-inference/internal/domain/gateway/api"
	"weather-inference/internal/domain/gateway/artifact"
	"weather-inference/internal/domain/gateway/model"
	"weather-inference/internal/domain/gateway/queue"
	"weather-inference/internal/domain/label"
	"weather-inference/internal/domain/sink"
	"weather-inference/pkg/log"
	"weather-inference/pkg/msg"
)

// Options tune a prediction use case. Zero values pick the defaults.
type Options struct {
	FailureMode   FailureMode
	LabelCacheDir string
	// Clock stamps results; defaults to time.Now in UTC
	Clock func() time.Time
	// NewRunID defaults to a random UUID
	NewRunID func() string
	// NewResolver builds the label resolver of one run
	NewResolver func() label.Resolver
}

type predictionUseCase struct {
	weatherGateway api.WeatherGateway
	modelGateway   model.Gateway
	resultSink     sink.ResultSink
	notifier       queue.RunNotifier
	validate       *validator.Validate

	failureMode FailureMode
	clock       func() time.Time
	newRunID    func() string
	newResolver func() label.Resolver
}

func NewPredictionUseCase(
	weatherGateway api.WeatherGateway,
	modelGateway model.Gateway,
	artifactGateway artifact.Gateway,
	resultSink sink.ResultSink,
	notifier queue.RunNotifier,
	opts Options,
) UseCase {
	uc := &predictionUseCase{
		weatherGateway: weatherGateway,
		modelGateway:   modelGateway,
		resultSink:     resultSink,
		notifier:       notifier,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		failureMode:    opts.FailureMode,
		clock:          opts.Clock,
		newRunID:       opts.NewRunID,
		newResolver:    opts.NewResolver,
	}

	if uc.failureMode == "" {
		uc.failureMode = FailureModeAllOrNothing
	}
	if uc.clock == nil {
		uc.clock = time.Now
	}
	if uc.newRunID == nil {
		uc.newRunID = uuid.NewString
	}
	if uc.newResolver == nil {
		cacheDir := opts.LabelCacheDir
		uc.newResolver = func() label.Resolver {
			return label.NewRunResolver(artifactGateway, cacheDir)
		}
	}
	if uc.notifier == nil {
		uc.notifier = queue.NewNoopRunNotifier()
	}

	return uc
}

func (uc *predictionUseCase) FailureMode() FailureMode {
	return uc.failureMode
}

func (uc *predictionUseCase) Run(ctx context.Context, cfg entity.RunConfig, locations []entity.Location) (*entity.ResultBatch, error) {
	if err := uc.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidRunConfig, err)
	}
	if uc.failureMode != FailureModeAllOrNothing && uc.failureMode != FailureModeIsolated {
		return nil, fmt.Errorf("unknown failure mode %q", uc.failureMode)
	}

	runID := uc.newRunID()
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("model_variant", string(cfg.ModelVariant)),
	}
	log.Info(msg.GetMessage("prediction.run.start", cfg.ModelVariant, len(locations)), fields...)

	predictor, err := uc.modelGateway.Load(ctx, cfg.ModelURI)
	if err != nil {
		var loadErr *entity.ModelLoadError
		if !errors.As(err, &loadErr) {
			err = &entity.ModelLoadError{ModelURI: cfg.ModelURI, Err: err}
		}
		log.Error(msg.GetMessage("prediction.model.load-failed", cfg.ModelURI, err), append(fields, zap.Error(err))...)
		return nil, err
	}

	mapping := uc.newResolver().Resolve(ctx, cfg.ModelVariant, cfg.ModelURI)

	batch := &entity.ResultBatch{
		RunID:        runID,
		ModelVariant: cfg.ModelVariant,
		LabelSource:  string(mapping.Source()),
		Results:      make([]entity.PredictionResult, 0, len(locations)),
	}

	for _, location := range locations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := uc.predictLocation(ctx, predictor, mapping, cfg.ModelVariant, location)
		if err != nil {
			log.Error(msg.GetMessage("prediction.location.failed", location.Name, err),
				append(fields, zap.String("location", location.Name), zap.Error(err))...)

			if uc.failureMode == FailureModeAllOrNothing {
				return nil, fmt.Errorf("location %s: %w", location.Name, err)
			}
			batch.Failures = append(batch.Failures, entity.LocationFailure{
				Location: location,
				Err:      err,
				Message:  err.Error(),
			})
			continue
		}

		log.Info(msg.GetMessage("prediction.location.done", location.Name, result.PredictedLabel, result.PredictedCode),
			append(fields, zap.String("location", location.Name))...)
		batch.Results = append(batch.Results, result)
	}

	log.Info(msg.GetMessage("prediction.run.done", cfg.ModelVariant, len(batch.Results), len(batch.Failures)), fields...)

	if len(batch.Failures) > 0 {
		return batch, &entity.RunError{RunID: runID, Failures: batch.Failures}
	}
	return batch, nil
}

// predictLocation is one unit of work: fetch, encode, predict, decode
func (uc *predictionUseCase) predictLocation(ctx context.Context, predictor model.Predictor, mapping label.Mapping, variant entity.ModelVariant, location entity.Location) (entity.PredictionResult, error) {
	observation, err := uc.weatherGateway.Fetch(ctx, location)
	if err != nil {
		return entity.PredictionResult{}, err
	}

	vector, err := feature.Encode(observation)
	if err != nil {
		return entity.PredictionResult{}, err
	}
	log.Debug("encoded features", zap.String("location", location.Name), zap.Any("features", vector.Map()))

	code, err := predictor.Predict(ctx, vector)
	if err != nil {
		return entity.PredictionResult{}, err
	}

	return entity.PredictionResult{
		Location:       location,
		PredictedLabel: label.Decode(mapping, code),
		PredictedCode:  code,
		ModelVariant:   variant,
		Timestamp:      uc.clock().UTC(),
	}, nil
}

func (uc *predictionUseCase) RunAndPersist(ctx context.Context, cfg entity.RunConfig, locations []entity.Location) (*Outcome, error) {
	batch, runErr := uc.Run(ctx, cfg, locations)
	if runErr != nil {
		var partial *entity.RunError
		if !errors.As(runErr, &partial) || batch.Len() == 0 {
			return &Outcome{Batch: batch}, runErr
		}
	}

	staged, err := uc.resultSink.Persist(ctx, batch, cfg.OutputKey)
	outcome := &Outcome{Batch: batch, Artifact: staged}
	if err != nil {
		return outcome, errors.Join(runErr, err)
	}

	if err := uc.notifier.Notify(ctx, batch, cfg.OutputKey, staged.Location); err != nil {
		log.Warn(msg.GetMessage("prediction.notify-failed", batch.RunID, err),
			zap.String("run_id", batch.RunID), zap.Error(err))
	}

	return outcome, runErr
}
