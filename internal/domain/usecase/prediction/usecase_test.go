package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/feature"
	"weather-inference/internal/domain/gateway/model"
	"weather-inference/internal/domain/label"
	"weather-inference/internal/domain/model/external"
	"weather-inference/internal/domain/sink"
)

var cities = []entity.Location{
	{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522},
	{Name: "Toulouse", Latitude: 43.6047, Longitude: 1.4442},
	{Name: "Lyon", Latitude: 45.7640, Longitude: 4.8357},
	{Name: "Marseille", Latitude: 43.2965, Longitude: 5.3698},
	{Name: "Nantes", Latitude: 47.2184, Longitude: -1.5536},
}

var historical = entity.RunConfig{
	ModelVariant: entity.VariantHistorical,
	ModelURI:     "runs:/4038bf02c80d47cfa706f9e0e73c1fda/model",
	OutputKey:    "historical.csv",
}

var fixedNow = time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC)

// --- Mock WeatherGateway ---

type mockWeather struct {
	mock.Mock
}

func (m *mockWeather) Fetch(ctx context.Context, location entity.Location) (*external.Observation, error) {
	args := m.Called(location.Name)
	if o := args.Get(0); o != nil {
		return o.(*external.Observation), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Mock ModelGateway and Predictor ---

type mockModels struct {
	mock.Mock
}

func (m *mockModels) Load(ctx context.Context, uri string) (model.Predictor, error) {
	args := m.Called(uri)
	if p := args.Get(0); p != nil {
		return p.(model.Predictor), args.Error(1)
	}
	return nil, args.Error(1)
}

// codePredictor returns the temperature as the code, so each city can be told apart
type codePredictor struct {
	err error
}

func (p *codePredictor) Predict(ctx context.Context, vector feature.Vector) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return int(vector[feature.Temp]), nil
}

func (p *codePredictor) URI() string { return historical.ModelURI }

// --- Mock ResultSink and RunNotifier ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Persist(ctx context.Context, batch *entity.ResultBatch, destinationKey string) (*sink.StagedArtifact, error) {
	args := m.Called(batch, destinationKey)
	if a := args.Get(0); a != nil {
		return a.(*sink.StagedArtifact), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, batch *entity.ResultBatch, objectKey, location string) error {
	return m.Called(batch, objectKey, location).Error(0)
}

func observation(t *testing.T, temp int) *external.Observation {
	t.Helper()
	var obs external.Observation
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`{"dt": 1735984800, "main": {"temp": %d}}`, temp)), &obs))
	return &obs
}

type fixture struct {
	weather  *mockWeather
	models   *mockModels
	sink     *mockSink
	notifier *mockNotifier
}

func newFixture() *fixture {
	return &fixture{
		weather:  new(mockWeather),
		models:   new(mockModels),
		sink:     new(mockSink),
		notifier: new(mockNotifier),
	}
}

func (f *fixture) useCase(t *testing.T, mode FailureMode) UseCase {
	cacheDir := t.TempDir()
	return NewPredictionUseCase(f.weather, f.models, nil, f.sink, f.notifier, Options{
		FailureMode: mode,
		Clock:       func() time.Time { return fixedNow },
		NewRunID:    func() string { return "run-1" },
		NewResolver: func() label.Resolver { return label.NewRunResolver(nil, cacheDir) },
	})
}

func (f *fixture) allCitiesSucceed(t *testing.T) {
	for i, city := range cities {
		f.weather.On("Fetch", city.Name).Return(observation(t, i), nil)
	}
}

func TestRun_PredictsEveryLocationInOrder(t *testing.T) {
	f := newFixture()
	f.models.On("Load", historical.ModelURI).Return(&codePredictor{}, nil)
	f.allCitiesSucceed(t)

	batch, err := f.useCase(t, "").Run(context.Background(), historical, cities)
	require.NoError(t, err)

	require.Len(t, batch.Results, 5)
	assert.Equal(t, "run-1", batch.RunID)
	assert.Equal(t, string(label.SourceDefault), batch.LabelSource)
	expectedLabels := []string{"Clear", "Clouds", "Fog", "Rain", "Snow"}
	for i, result := range batch.Results {
		assert.Equal(t, cities[i], result.Location)
		assert.Equal(t, i, result.PredictedCode)
		assert.Equal(t, expectedLabels[i], result.PredictedLabel)
		assert.Equal(t, entity.VariantHistorical, result.ModelVariant)
		assert.Equal(t, fixedNow, result.Timestamp)
	}
	f.models.AssertNumberOfCalls(t, "Load", 1)
}

func TestRun_OutOfRangeCodeIsUnknown(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{}, nil)
	f.weather.On("Fetch", "Paris").Return(observation(t, 99), nil)

	batch, err := f.useCase(t, "").Run(context.Background(), historical, cities[:1])
	require.NoError(t, err)
	assert.Equal(t, "Unknown_99", batch.Results[0].PredictedLabel)
	assert.Equal(t, 99, batch.Results[0].PredictedCode)
}

func TestRun_AllOrNothingAbortsOnFirstFailure(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{}, nil)
	f.weather.On("Fetch", "Paris").Return(observation(t, 0), nil)
	f.weather.On("Fetch", "Toulouse").Return(nil, &entity.UpstreamFetchError{StatusCode: 500, Body: "boom"})

	batch, err := f.useCase(t, FailureModeAllOrNothing).Run(context.Background(), historical, cities)

	assert.Nil(t, batch)
	var upstream *entity.UpstreamFetchError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 500, upstream.StatusCode)
	assert.ErrorContains(t, err, "Toulouse")
	f.weather.AssertNotCalled(t, "Fetch", "Lyon")
}

func TestRun_IsolatedCollectsFailures(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{}, nil)
	for i, city := range cities {
		if city.Name == "Lyon" {
			f.weather.On("Fetch", city.Name).Return(&external.Observation{}, nil)
			continue
		}
		f.weather.On("Fetch", city.Name).Return(observation(t, i), nil)
	}

	batch, err := f.useCase(t, FailureModeIsolated).Run(context.Background(), historical, cities)

	require.NotNil(t, batch)
	assert.Len(t, batch.Results, 4)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "Lyon", batch.Failures[0].Location.Name)

	var runErr *entity.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Contains(t, runErr.Error(), "Lyon")
	var malformed *entity.MalformedObservationError
	assert.True(t, errors.As(err, &malformed))

	names := make([]string, 0, len(batch.Results))
	for _, result := range batch.Results {
		names = append(names, result.Location.Name)
	}
	assert.Equal(t, []string{"Paris", "Toulouse", "Marseille", "Nantes"}, names)
}

func TestRun_IsolatedAllFail(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{err: errors.New("scoring failed")}, nil)
	f.allCitiesSucceed(t)

	batch, err := f.useCase(t, FailureModeIsolated).Run(context.Background(), historical, cities)
	require.Error(t, err)
	assert.Equal(t, 0, batch.Len())
	assert.Len(t, batch.Failures, 5)
}

func TestRun_ModelLoadFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(nil, errors.New("registry down"))

	batch, err := f.useCase(t, FailureModeIsolated).Run(context.Background(), historical, cities)

	assert.Nil(t, batch)
	var loadErr *entity.ModelLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, historical.ModelURI, loadErr.ModelURI)
	f.weather.AssertNotCalled(t, "Fetch", mock.Anything)
}

func TestRun_InvalidRunConfig(t *testing.T) {
	f := newFixture()
	uc := f.useCase(t, "")

	_, err := uc.Run(context.Background(), entity.RunConfig{ModelVariant: "daily", ModelURI: "x", OutputKey: "y"}, cities)
	assert.ErrorIs(t, err, entity.ErrInvalidRunConfig)

	_, err = uc.Run(context.Background(), entity.RunConfig{ModelVariant: entity.VariantHistorical}, cities)
	assert.ErrorIs(t, err, entity.ErrInvalidRunConfig)
	f.models.AssertNotCalled(t, "Load", mock.Anything)
}

func TestRun_EmptyLocations(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{}, nil)

	batch, err := f.useCase(t, "").Run(context.Background(), historical, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
}

func TestRunAndPersist_PublishesAndNotifies(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{}, nil)
	f.allCitiesSucceed(t)
	staged := &sink.StagedArtifact{RunID: "run-1", Key: "historical.csv", Location: "s3://weather/historical.csv", Rows: 5}
	f.sink.On("Persist", mock.Anything, "historical.csv").Return(staged, nil)
	f.notifier.On("Notify", mock.Anything, "historical.csv", "s3://weather/historical.csv").Return(nil)

	outcome, err := f.useCase(t, "").RunAndPersist(context.Background(), historical, cities)

	require.NoError(t, err)
	assert.Same(t, staged, outcome.Artifact)
	assert.Len(t, outcome.Batch.Results, 5)
	f.notifier.AssertExpectations(t)
}

func TestRunAndPersist_NothingPersistedOnAbort(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(nil, &entity.ModelLoadError{ModelURI: historical.ModelURI, Err: errors.New("no")})

	_, err := f.useCase(t, "").RunAndPersist(context.Background(), historical, cities)

	require.Error(t, err)
	f.sink.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAndPersist_IsolatedPersistsPartialBatch(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{}, nil)
	f.weather.On("Fetch", "Paris").Return(observation(t, 1), nil)
	f.weather.On("Fetch", "Toulouse").Return(nil, &entity.UpstreamFetchError{StatusCode: 429})
	f.sink.On("Persist", mock.Anything, "historical.csv").Return(&sink.StagedArtifact{Location: "s3://weather/historical.csv"}, nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("queue down"))

	outcome, err := f.useCase(t, FailureModeIsolated).RunAndPersist(context.Background(), historical, cities[:2])

	var runErr *entity.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Len(t, outcome.Batch.Results, 1)
	f.sink.AssertNumberOfCalls(t, "Persist", 1)
}

func TestRunAndPersist_UploadErrorSurfaces(t *testing.T) {
	f := newFixture()
	f.models.On("Load", mock.Anything).Return(&codePredictor{}, nil)
	f.allCitiesSucceed(t)
	uploadErr := &entity.UploadError{Key: "historical.csv", StagedPath: "/tmp/run-1/historical.csv", Err: errors.New("denied")}
	f.sink.On("Persist", mock.Anything, mock.Anything).Return(&sink.StagedArtifact{LocalPath: uploadErr.StagedPath, Kept: true}, uploadErr)

	outcome, err := f.useCase(t, "").RunAndPersist(context.Background(), historical, cities)

	var target *entity.UploadError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "/tmp/run-1/historical.csv", outcome.Artifact.LocalPath)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}
