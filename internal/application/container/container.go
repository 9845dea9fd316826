// Package container builds the gateways and use cases shared by the service
// and the one-shot command from the application configuration.
package container

import (
	"context"
	"fmt"
	"time"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"weather-inference/configs"
	"weather-inference/internal/domain/gateway/api"
	"weather-inference/internal/domain/gateway/artifact"
	"weather-inference/internal/domain/gateway/model"
	"weather-inference/internal/domain/gateway/queue"
	"weather-inference/internal/domain/gateway/storage"
	"weather-inference/internal/domain/sink"
	"weather-inference/internal/domain/usecase/prediction"
	"weather-inference/internal/infra/aws"
	"weather-inference/internal/infra/minio"
	"weather-inference/pkg/http"
	"weather-inference/pkg/log"
	"weather-inference/pkg/redis"
	"weather-inference/pkg/sqs"
)

// Container holds everything built from one AppConfig
type Container struct {
	Config            *configs.AppConfig
	Redis             *redis.Client
	SQS               *awssqs.Client
	PredictionUseCase prediction.UseCase
}

// Build wires the prediction pipeline. Redis and SQS clients are created
// lazily by their SDKs, so an unreachable broker only fails at first use.
func Build(ctx context.Context, cfg *configs.AppConfig) (*Container, error) {
	c := &Container{Config: cfg}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	c.Redis = redisClient

	var session *aws.Session
	if cfg.Storage.Backend == "s3" || cfg.Queue.Enabled {
		session, err = aws.NewSession(ctx, cfg.Cloud)
		if err != nil {
			c.Close()
			return nil, err
		}
	}

	storageGateway, err := newStorageGateway(ctx, cfg, session)
	if err != nil {
		c.Close()
		return nil, err
	}

	notifier := queue.NewNoopRunNotifier()
	if cfg.Queue.Enabled {
		c.SQS = session.NewSqsClient()
		notifier = queue.NewRunNotifier(sqs.NewSender(c.SQS), cfg.Queue.PredictionPublished)
	}

	c.PredictionUseCase = prediction.NewPredictionUseCase(
		api.NewWeatherGateway(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Units, http.ClientOptions{
			ReadTimeout:     cfg.Weather.Timeout,
			BreakerName:     "openweather",
			BreakerFailures: 5,
		}),
		model.NewModelGateway(cfg.Model.ServingURL, cfg.Model.EndpointMap(), http.ClientOptions{
			ReadTimeout:     cfg.Model.Timeout,
			BreakerName:     "model-serving",
			BreakerFailures: 3,
		}),
		newArtifactGateway(cfg.Label),
		sink.NewResultSink(storageGateway, cfg.Sink.StagingDir, cfg.Sink.KeepStaged),
		notifier,
		prediction.Options{
			FailureMode:   prediction.FailureMode(cfg.Prediction.FailureMode),
			LabelCacheDir: cfg.Label.CacheDir,
		},
	)

	return c, nil
}

// Close releases the connections opened by Build
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}
}

func newStorageGateway(ctx context.Context, cfg *configs.AppConfig, session *aws.Session) (storage.Gateway, error) {
	switch cfg.Storage.Backend {
	case "minio":
		client, err := minio.NewClient(ctx, cfg.Minio, cfg.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		return storage.NewMinioStorageGateway(client, cfg.Storage.Bucket, cfg.Storage.Prefix), nil
	case "s3":
		return storage.NewS3StorageGateway(session.NewS3Client(), cfg.Storage.Bucket, cfg.Storage.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newArtifactGateway returns nil when no tracking server is configured, which
// sends label resolution straight to the local cache.
func newArtifactGateway(cfg configs.LabelConfig) artifact.Gateway {
	if cfg.TrackingURL == "" {
		return nil
	}
	return artifact.NewArtifactGateway(cfg.TrackingURL, http.ClientOptions{
		ReadTimeout: 15 * time.Second,
		Backoff:     http.DefaultBackoff(),
	})
}
