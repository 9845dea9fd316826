package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/sink"
	"weather-inference/internal/domain/usecase/prediction"
)

type mockPredictionUseCase struct {
	mock.Mock
}

func (m *mockPredictionUseCase) Run(ctx context.Context, cfg entity.RunConfig, locations []entity.Location) (*entity.ResultBatch, error) {
	args := m.Called(ctx, cfg, locations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ResultBatch), args.Error(1)
}

func (m *mockPredictionUseCase) RunAndPersist(ctx context.Context, cfg entity.RunConfig, locations []entity.Location) (*prediction.Outcome, error) {
	args := m.Called(ctx, cfg, locations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*prediction.Outcome), args.Error(1)
}

func (m *mockPredictionUseCase) FailureMode() prediction.FailureMode {
	return prediction.FailureModeAllOrNothing
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) RunExclusive(ctx context.Context, key string, task func(ctx context.Context) error) (bool, error) {
	args := m.Called(ctx, key)
	if !args.Bool(0) {
		return false, args.Error(1)
	}
	return true, task(ctx)
}

var (
	historical = entity.RunConfig{
		ModelVariant: entity.VariantHistorical,
		ModelURI:     "runs:/4038bf02c80d47cfa706f9e0e73c1fda/model",
		OutputKey:    "historical.csv",
	}
	locations = []entity.Location{{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522}}
	published = &prediction.Outcome{
		Batch:    &entity.ResultBatch{RunID: "r1"},
		Artifact: &sink.StagedArtifact{RunID: "r1", Key: "historical.csv"},
	}
)

func newScheduler(t *testing.T, useCase prediction.UseCase, locker TaskLocker, retries int) (*PredictionScheduler, *[]time.Duration) {
	t.Helper()
	s, err := NewPredictionScheduler(useCase, locker, []entity.RunConfig{historical}, locations, PredictionSchedulerConfig{
		CronExpression: "*/5 * * * *",
		Retries:        retries,
		RetryDelay:     3 * time.Minute,
	})
	require.NoError(t, err)

	var waits []time.Duration
	s.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func TestNewPredictionScheduler_InvalidCron(t *testing.T) {
	_, err := NewPredictionScheduler(nil, nil, nil, nil, PredictionSchedulerConfig{CronExpression: "every five minutes"})
	assert.Error(t, err)
}

func TestExecute_SucceedsFirstAttempt(t *testing.T) {
	useCase := new(mockPredictionUseCase)
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(published, nil).Once()
	locker := new(mockLocker)
	locker.On("RunExclusive", mock.Anything, "historical").Return(true, nil)

	s, waits := newScheduler(t, useCase, locker, 2)

	require.NoError(t, s.Execute(context.Background(), historical))
	assert.Empty(t, *waits)
	useCase.AssertExpectations(t)
	locker.AssertExpectations(t)
}

func TestExecute_RetriesWithFixedDelay(t *testing.T) {
	upstream := &entity.UpstreamFetchError{StatusCode: 503, Body: "down"}
	useCase := new(mockPredictionUseCase)
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(nil, upstream).Twice()
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(published, nil).Once()

	s, waits := newScheduler(t, useCase, nil, 2)

	require.NoError(t, s.Execute(context.Background(), historical))
	assert.Equal(t, []time.Duration{3 * time.Minute, 3 * time.Minute}, *waits)
	useCase.AssertNumberOfCalls(t, "RunAndPersist", 3)
}

func TestExecute_GivesUpAfterRetries(t *testing.T) {
	loadErr := &entity.ModelLoadError{ModelURI: historical.ModelURI, Err: errors.New("refused")}
	useCase := new(mockPredictionUseCase)
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(nil, loadErr)

	s, waits := newScheduler(t, useCase, nil, 2)

	err := s.Execute(context.Background(), historical)
	var target *entity.ModelLoadError
	assert.ErrorAs(t, err, &target)
	assert.Len(t, *waits, 2)
	useCase.AssertNumberOfCalls(t, "RunAndPersist", 3)
}

func TestExecute_UploadFailureIsRetried(t *testing.T) {
	staged := &prediction.Outcome{
		Batch:    &entity.ResultBatch{RunID: "r1"},
		Artifact: &sink.StagedArtifact{RunID: "r1"},
	}
	useCase := new(mockPredictionUseCase)
	useCase.On("RunAndPersist", mock.Anything, historical, locations).
		Return(staged, &entity.UploadError{Key: "historical.csv", Err: errors.New("denied")}).Once()
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(published, nil).Once()

	s, waits := newScheduler(t, useCase, nil, 2)

	require.NoError(t, s.Execute(context.Background(), historical))
	assert.Len(t, *waits, 1)
}

func TestExecute_PublishedPartialBatchIsNotRetried(t *testing.T) {
	runErr := &entity.RunError{RunID: "r1", Failures: []entity.LocationFailure{{Location: locations[0], Err: errors.New("boom")}}}
	useCase := new(mockPredictionUseCase)
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(published, runErr).Once()

	s, waits := newScheduler(t, useCase, nil, 2)

	assert.ErrorIs(t, s.Execute(context.Background(), historical), runErr)
	assert.Empty(t, *waits)
	useCase.AssertNumberOfCalls(t, "RunAndPersist", 1)
}

func TestExecute_InvalidConfigIsNotRetried(t *testing.T) {
	useCase := new(mockPredictionUseCase)
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(nil, entity.ErrInvalidRunConfig)

	s, waits := newScheduler(t, useCase, nil, 2)

	assert.ErrorIs(t, s.Execute(context.Background(), historical), entity.ErrInvalidRunConfig)
	assert.Empty(t, *waits)
	useCase.AssertNumberOfCalls(t, "RunAndPersist", 1)
}

func TestExecute_SkipsWhenLockHeld(t *testing.T) {
	useCase := new(mockPredictionUseCase)
	locker := new(mockLocker)
	locker.On("RunExclusive", mock.Anything, "historical").Return(false, nil)

	s, _ := newScheduler(t, useCase, locker, 2)

	assert.NoError(t, s.Execute(context.Background(), historical))
	useCase.AssertNotCalled(t, "RunAndPersist", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_StopsRetryingWhenCancelled(t *testing.T) {
	useCase := new(mockPredictionUseCase)
	useCase.On("RunAndPersist", mock.Anything, historical, locations).Return(nil, errors.New("boom"))

	s, _ := newScheduler(t, useCase, nil, 2)
	s.wait = sleep

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Execute(ctx, historical), context.Canceled)
	useCase.AssertNumberOfCalls(t, "RunAndPersist", 1)
}

func TestStart_RegistersJobPerRun(t *testing.T) {
	useCase := new(mockPredictionUseCase)
	s, err := NewPredictionScheduler(useCase, nil, []entity.RunConfig{
		historical,
		{ModelVariant: entity.VariantForecast6h, ModelURI: "runs:/b/model", OutputKey: "forecast_6h.csv"},
	}, locations, PredictionSchedulerConfig{CronExpression: "0 0 1 1 *"})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Len(t, s.scheduler.Jobs(), 2)
	assert.NoError(t, s.Stop())
}
