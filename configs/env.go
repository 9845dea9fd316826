package configs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"weather-inference/internal/domain/entity"
	"weather-inference/pkg/msg"
	"weather-inference/pkg/redis"
	"weather-inference/pkg/resource"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ContextPath     string        `mapstructure:"context-path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type PredictionConfig struct {
	FailureMode string `mapstructure:"failure-mode" validate:"oneof=all-or-nothing isolated"`
}

type ScheduleConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Cron       string        `mapstructure:"cron" validate:"required"`
	Retries    int           `mapstructure:"retries" validate:"min=0"`
	RetryDelay time.Duration `mapstructure:"retry-delay" validate:"min=0"`
	LockTTL    time.Duration `mapstructure:"lock-ttl"`
}

type WeatherConfig struct {
	BaseURL string        `mapstructure:"base-url" validate:"required,url"`
	APIKey  string        `mapstructure:"api-key"`
	Units   string        `mapstructure:"units"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ModelEndpoint struct {
	ModelURI string `mapstructure:"model-uri" validate:"required"`
	URL      string `mapstructure:"url" validate:"required,url"`
}

type ModelConfig struct {
	ServingURL string          `mapstructure:"serving-url" validate:"required,url"`
	Endpoints  []ModelEndpoint `mapstructure:"endpoints" validate:"dive"`
	Timeout    time.Duration   `mapstructure:"timeout"`
}

// EndpointMap indexes the per-model serving URLs by model URI.
func (m ModelConfig) EndpointMap() map[string]string {
	out := make(map[string]string, len(m.Endpoints))
	for _, e := range m.Endpoints {
		out[e.ModelURI] = e.URL
	}
	return out
}

type LabelConfig struct {
	TrackingURL string `mapstructure:"tracking-url"`
	CacheDir    string `mapstructure:"cache-dir"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=s3 minio"`
	Bucket  string `mapstructure:"bucket" validate:"required"`
	Prefix  string `mapstructure:"prefix"`
}

type SinkConfig struct {
	StagingDir string `mapstructure:"staging-dir" validate:"required"`
	KeepStaged bool   `mapstructure:"keep-staged"`
}

type CloudConfig struct {
	AWSRegion          string `mapstructure:"aws-region"`
	AWSEndpoint        string `mapstructure:"aws-endpoint"`
	AWSAccessKeyID     string `mapstructure:"aws-access-key-id"`
	AWSSecretAccessKey string `mapstructure:"aws-secret-access-key"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
	Secure    bool   `mapstructure:"secure"`
	Region    string `mapstructure:"region"`
}

type QueueConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	PredictionPublished string `mapstructure:"prediction-published" validate:"required_if=Enabled true"`
	PredictionRequests  string `mapstructure:"prediction-requests"`
	Workers             int    `mapstructure:"workers" validate:"min=0"`
}

type SampleConfig struct {
	CSVPath    string        `mapstructure:"csv-path"`
	RateLimit  int           `mapstructure:"rate-limit" validate:"min=0"`
	RateWindow time.Duration `mapstructure:"rate-window"`
}

// AppConfig is the typed view of the "app" properties tree.
type AppConfig struct {
	Name       string             `mapstructure:"name" validate:"required"`
	Server     ServerConfig       `mapstructure:"server"`
	Locations  []entity.Location  `mapstructure:"locations" validate:"required,min=1,dive"`
	Runs       []entity.RunConfig `mapstructure:"runs" validate:"required,min=1,dive"`
	Prediction PredictionConfig   `mapstructure:"prediction"`
	Schedule   ScheduleConfig     `mapstructure:"schedule"`
	Weather    WeatherConfig      `mapstructure:"weather"`
	Model      ModelConfig        `mapstructure:"model"`
	Label      LabelConfig        `mapstructure:"label"`
	Storage    StorageConfig      `mapstructure:"storage"`
	Sink       SinkConfig         `mapstructure:"sink"`
	Cloud      CloudConfig        `mapstructure:"cloud"`
	Minio      MinioConfig        `mapstructure:"minio"`
	Redis      redis.Config       `mapstructure:"redis"`
	Queue      QueueConfig        `mapstructure:"queue"`
	Sample     SampleConfig       `mapstructure:"sample"`
}

// Run returns the run configuration of variant.
func (c *AppConfig) Run(variant entity.ModelVariant) (entity.RunConfig, bool) {
	for _, run := range c.Runs {
		if run.ModelVariant == variant {
			return run, true
		}
	}
	return entity.RunConfig{}, false
}

// Load reads .env when present, then the properties and message files, and
// returns the validated application configuration.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("fail to read .env: %w", err)
	}
	if err := resource.Load(); err != nil {
		return nil, err
	}
	if err := msg.Load(); err != nil {
		return nil, err
	}
	return FromProperties()
}

// FromProperties decodes the already loaded properties.
func FromProperties() (*AppConfig, error) {
	cfg := defaults()
	if err := resource.UnmarshalKey("app", cfg); err != nil {
		return nil, fmt.Errorf("fail to decode app properties: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid app properties: %w", err)
	}
	if cfg.Storage.Backend == "minio" && cfg.Minio.Endpoint == "" {
		return nil, errors.New("invalid app properties: app.minio.endpoint is required for the minio backend")
	}
	if err := cfg.Redis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app properties: %w", err)
	}
	return cfg, nil
}

func defaults() *AppConfig {
	return &AppConfig{
		Name: "weather-inference",
		Server: ServerConfig{
			Port:            8080,
			ContextPath:     "/weather-inference",
			ShutdownTimeout: 10 * time.Second,
		},
		Prediction: PredictionConfig{FailureMode: "all-or-nothing"},
		Schedule: ScheduleConfig{
			Enabled:    true,
			Cron:       "*/5 * * * *",
			Retries:    2,
			RetryDelay: 3 * time.Minute,
			LockTTL:    5 * time.Minute,
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org",
			Units:   "metric",
			Timeout: 10 * time.Second,
		},
		Model:   ModelConfig{Timeout: 30 * time.Second},
		Storage: StorageConfig{Backend: "s3"},
		Sink:    SinkConfig{StagingDir: os.TempDir()},
		Redis:   *redis.NewRedisConfig(),
		Sample: SampleConfig{
			RateLimit:  5,
			RateWindow: time.Minute,
		},
	}
}
