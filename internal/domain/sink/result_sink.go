// Package sink stages a result batch as CSV and publishes it to object storage.
package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/gateway/storage"
	"weather-inference/pkg/log"
	"weather-inference/pkg/msg"
)

// Header is the column order of every published file.
var Header = []string{"ville", "lat", "lon", "prediction", "prediction_code", "model_type", "timestamp"}

// StagedArtifact describes a batch that was written locally and uploaded.
type StagedArtifact struct {
	RunID     string
	Key       string
	Location  string
	LocalPath string
	Rows      int
	// Kept is true when the staged file is still on disk
	Kept bool
}

// ResultSink persists result batches
type ResultSink interface {
	// Persist writes batch under destinationKey. Upload failures are returned as
	// *entity.UploadError and leave the staged file in place.
	Persist(ctx context.Context, batch *entity.ResultBatch, destinationKey string) (*StagedArtifact, error)
}

type resultSink struct {
	storage    storage.Gateway
	stagingDir string
	keepStaged bool
}

// NewResultSink stages under stagingDir, one directory per run
func NewResultSink(storage storage.Gateway, stagingDir string, keepStaged bool) ResultSink {
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}
	return &resultSink{
		storage:    storage,
		stagingDir: stagingDir,
		keepStaged: keepStaged,
	}
}

func (s *resultSink) Persist(ctx context.Context, batch *entity.ResultBatch, destinationKey string) (*StagedArtifact, error) {
	if batch == nil {
		return nil, errors.New("nothing to persist: batch is nil")
	}
	if batch.RunID == "" {
		return nil, errors.New("batch has no run id")
	}
	if destinationKey == "" || path.Base(destinationKey) == "." || path.Base(destinationKey) == "/" {
		return nil, fmt.Errorf("invalid destination key %q", destinationKey)
	}

	runDir := filepath.Join(s.stagingDir, batch.RunID)
	localPath := filepath.Join(runDir, path.Base(destinationKey))

	if err := writeCSV(runDir, localPath, batch.Results); err != nil {
		return nil, fmt.Errorf("stage %s: %w", localPath, err)
	}

	artifact := &StagedArtifact{
		RunID:     batch.RunID,
		Key:       destinationKey,
		Location:  s.storage.Location(destinationKey),
		LocalPath: localPath,
		Rows:      len(batch.Results),
		Kept:      true,
	}

	if err := s.storage.Upload(ctx, localPath, destinationKey); err != nil {
		log.Error(msg.GetMessage("sink.upload-failed", destinationKey, localPath, err),
			zap.String("run_id", batch.RunID),
			zap.String("staged_path", localPath),
			zap.Error(err))
		return artifact, &entity.UploadError{Key: destinationKey, StagedPath: localPath, Err: err}
	}

	log.Info(msg.GetMessage("sink.uploaded", artifact.Rows, artifact.Location),
		zap.String("run_id", batch.RunID),
		zap.String("model_variant", string(batch.ModelVariant)),
		zap.Int("rows", artifact.Rows))

	if !s.keepStaged {
		if err := os.RemoveAll(runDir); err != nil {
			log.Warn("failed to clean staging directory", zap.String("path", runDir), zap.Error(err))
		} else {
			artifact.Kept = false
		}
	}

	return artifact, nil
}

func writeCSV(dir, localPath string, results []entity.PredictionResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(localPath)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		_ = file.Close()
		return err
	}
	for _, result := range results {
		if err := writer.Write(Row(result)); err != nil {
			_ = file.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Row renders one result in Header order
func Row(result entity.PredictionResult) []string {
	return []string{
		result.Location.Name,
		strconv.FormatFloat(result.Location.Latitude, 'f', -1, 64),
		strconv.FormatFloat(result.Location.Longitude, 'f', -1, 64),
		result.PredictedLabel,
		strconv.Itoa(result.PredictedCode),
		string(result.ModelVariant),
		result.Timestamp.UTC().Format(time.RFC3339),
	}
}
