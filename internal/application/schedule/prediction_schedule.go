package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/usecase/prediction"
	"weather-inference/pkg/log"
	"weather-inference/pkg/msg"
)

// TaskLocker runs a task only when no other instance runs the same key.
// *redis.ScheduledTaskLock implements it.
type TaskLocker interface {
	RunExclusive(ctx context.Context, key string, task func(ctx context.Context) error) (bool, error)
}

// PredictionSchedulerConfig holds configuration for the prediction scheduler
type PredictionSchedulerConfig struct {
	CronExpression string
	// Retries is the number of whole-run attempts after the first one
	Retries    int
	RetryDelay time.Duration
}

// PredictionScheduler triggers one prediction job per run configuration
type PredictionScheduler struct {
	scheduler gocron.Scheduler
	useCase   prediction.UseCase
	locker    TaskLocker
	runs      []entity.RunConfig
	locations []entity.Location
	config    PredictionSchedulerConfig
	wait      func(ctx context.Context, d time.Duration) error
}

// NewPredictionScheduler validates the cron expression and prepares the jobs.
// A nil locker disables the cross-instance guard.
func NewPredictionScheduler(useCase prediction.UseCase, locker TaskLocker, runs []entity.RunConfig, locations []entity.Location, config PredictionSchedulerConfig) (*PredictionScheduler, error) {
	if _, err := cron.ParseStandard(config.CronExpression); err != nil {
		return nil, fmt.Errorf("invalid prediction cron %q: %w", config.CronExpression, err)
	}
	if config.Retries < 0 {
		config.Retries = 0
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &PredictionScheduler{
		scheduler: scheduler,
		useCase:   useCase,
		locker:    locker,
		runs:      runs,
		locations: locations,
		config:    config,
		wait:      sleep,
	}, nil
}

// Start registers a singleton job per run configuration and starts the scheduler
func (s *PredictionScheduler) Start() error {
	for _, run := range s.runs {
		_, err := s.scheduler.NewJob(
			gocron.CronJob(s.config.CronExpression, false),
			gocron.NewTask(func(ctx context.Context, run entity.RunConfig) {
				_ = s.Execute(ctx, run)
			}, run),
			gocron.WithName("prediction-"+string(run.ModelVariant)),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule %s prediction: %w", run.ModelVariant, err)
		}
		log.Info(msg.GetMessage("schedule.registered", run.ModelVariant, s.config.CronExpression))
	}

	s.scheduler.Start()
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs
func (s *PredictionScheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// Execute runs one scheduled trigger of run, guarded by the task lock
func (s *PredictionScheduler) Execute(ctx context.Context, run entity.RunConfig) error {
	requestID := uuid.NewString()
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("model_variant", string(run.ModelVariant)),
	}

	if s.locker == nil {
		return s.runWithRetry(ctx, run, fields)
	}

	ran, err := s.locker.RunExclusive(ctx, string(run.ModelVariant), func(ctx context.Context) error {
		return s.runWithRetry(ctx, run, fields)
	})
	if !ran && err == nil {
		log.Info(msg.GetMessage("schedule.skipped", run.ModelVariant), fields...)
	}
	return err
}

func (s *PredictionScheduler) runWithRetry(ctx context.Context, run entity.RunConfig, fields []zap.Field) error {
	attempts := s.config.Retries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Info(msg.GetMessage("schedule.start", run.ModelVariant, attempt, attempts), fields...)

		var outcome *prediction.Outcome
		outcome, err = s.useCase.RunAndPersist(ctx, run, s.locations)
		if err == nil || !retryable(outcome, err) {
			break
		}
		if attempt == attempts {
			break
		}

		log.Warn(msg.GetMessage("schedule.retry", run.ModelVariant, s.config.RetryDelay, err), append(fields, zap.Error(err))...)
		if waitErr := s.wait(ctx, s.config.RetryDelay); waitErr != nil {
			return waitErr
		}
	}

	if err != nil {
		log.Error(msg.GetMessage("schedule.failed", run.ModelVariant, attempts, err), append(fields, zap.Error(err))...)
		return err
	}

	log.Info(msg.GetMessage("schedule.end", run.ModelVariant), fields...)
	return nil
}

// retryable is false once a batch was published or when the run can never succeed
func retryable(outcome *prediction.Outcome, err error) bool {
	if errors.Is(err, entity.ErrInvalidRunConfig) || errors.Is(err, context.Canceled) {
		return false
	}
	var uploadErr *entity.UploadError
	if errors.As(err, &uploadErr) {
		return true
	}
	return outcome == nil || outcome.Artifact == nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
