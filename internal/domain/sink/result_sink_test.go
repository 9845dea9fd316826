package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weather-inference/internal/domain/entity"
)

type mockStorage struct {
	mock.Mock
	uploaded string
}

func (m *mockStorage) Upload(ctx context.Context, localPath, key string) error {
	content, _ := os.ReadFile(localPath)
	m.uploaded = string(content)
	return m.Called(localPath, key).Error(0)
}

func (m *mockStorage) Location(key string) string {
	return "s3://weather/" + key
}

var runAt = time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC)

func batch(runID string) *entity.ResultBatch {
	return &entity.ResultBatch{
		RunID:        runID,
		ModelVariant: entity.VariantForecast6h,
		Results: []entity.PredictionResult{
			{Location: entity.Location{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522}, PredictedLabel: "Rain", PredictedCode: 3, ModelVariant: entity.VariantForecast6h, Timestamp: runAt},
			{Location: entity.Location{Name: "Nantes", Latitude: 47.2184, Longitude: -1.5536}, PredictedLabel: "Unknown_9", PredictedCode: 9, ModelVariant: entity.VariantForecast6h, Timestamp: runAt},
		},
	}
}

func TestPersist_WritesExactCSVAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	storage := new(mockStorage)
	storage.On("Upload", filepath.Join(dir, "run-1", "forecast_6h.csv"), "forecast_6h.csv").Return(nil)

	artifact, err := NewResultSink(storage, dir, false).Persist(context.Background(), batch("run-1"), "forecast_6h.csv")
	require.NoError(t, err)

	expected := "ville,lat,lon,prediction,prediction_code,model_type,timestamp\n" +
		"Paris,48.8566,2.3522,Rain,3,forecast_6h,2025-01-04T10:00:00Z\n" +
		"Nantes,47.2184,-1.5536,Unknown_9,9,forecast_6h,2025-01-04T10:00:00Z\n"
	assert.Equal(t, expected, storage.uploaded)
	assert.Equal(t, 2, artifact.Rows)
	assert.Equal(t, "s3://weather/forecast_6h.csv", artifact.Location)
	assert.False(t, artifact.Kept)
	assert.NoDirExists(t, filepath.Join(dir, "run-1"))
}

func TestPersist_KeepStaged(t *testing.T) {
	dir := t.TempDir()
	storage := new(mockStorage)
	storage.On("Upload", mock.Anything, "out/historical.csv").Return(nil)

	artifact, err := NewResultSink(storage, dir, true).Persist(context.Background(), batch("run-2"), "out/historical.csv")
	require.NoError(t, err)
	assert.True(t, artifact.Kept)
	assert.Equal(t, filepath.Join(dir, "run-2", "historical.csv"), artifact.LocalPath)
	assert.FileExists(t, artifact.LocalPath)
}

func TestPersist_UploadFailureKeepsStagedFile(t *testing.T) {
	dir := t.TempDir()
	storage := new(mockStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(errors.New("bucket unreachable"))

	artifact, err := NewResultSink(storage, dir, false).Persist(context.Background(), batch("run-3"), "forecast_6h.csv")

	var uploadErr *entity.UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "forecast_6h.csv", uploadErr.Key)
	assert.Equal(t, filepath.Join(dir, "run-3", "forecast_6h.csv"), uploadErr.StagedPath)
	assert.FileExists(t, uploadErr.StagedPath)
	assert.True(t, artifact.Kept)
	assert.ErrorContains(t, err, "bucket unreachable")
}

func TestPersist_RunsNeverShareAStagingPath(t *testing.T) {
	dir := t.TempDir()
	storage := new(mockStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(errors.New("keep files"))

	first, _ := NewResultSink(storage, dir, false).Persist(context.Background(), batch("run-a"), "forecast_6h.csv")
	second, _ := NewResultSink(storage, dir, false).Persist(context.Background(), batch("run-b"), "forecast_6h.csv")

	assert.NotEqual(t, first.LocalPath, second.LocalPath)
	assert.FileExists(t, first.LocalPath)
	assert.FileExists(t, second.LocalPath)
}

func TestPersist_EmptyBatchWritesHeaderOnly(t *testing.T) {
	storage := new(mockStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil)

	empty := &entity.ResultBatch{RunID: "run-4", ModelVariant: entity.VariantHistorical}
	_, err := NewResultSink(storage, t.TempDir(), false).Persist(context.Background(), empty, "historical.csv")
	require.NoError(t, err)
	assert.Equal(t, "ville,lat,lon,prediction,prediction_code,model_type,timestamp\n", storage.uploaded)
}

func TestPersist_RejectsInvalidInput(t *testing.T) {
	sink := NewResultSink(new(mockStorage), t.TempDir(), false)

	_, err := sink.Persist(context.Background(), nil, "x.csv")
	assert.Error(t, err)
	_, err = sink.Persist(context.Background(), &entity.ResultBatch{}, "x.csv")
	assert.Error(t, err)
	_, err = sink.Persist(context.Background(), batch("run-5"), "")
	assert.Error(t, err)
}
