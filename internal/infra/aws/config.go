package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"weather-inference/configs"
)

// Session bundles the loaded SDK config with the optional LocalStack endpoint.
type Session struct {
	Config   aws.Config
	endpoint string
}

// NewSession resolves region and credentials from cfg. Static keys are used
// when both are set, otherwise the default credential chain applies
// (environment variables, shared profile, IAM role).
func NewSession(ctx context.Context, cfg configs.CloudConfig) (*Session, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Session{Config: awsCfg, endpoint: cfg.AWSEndpoint}, nil
}

// NewS3Client builds an S3 client; a custom endpoint forces path-style
// addressing, which LocalStack requires.
func (s *Session) NewS3Client() *s3.Client {
	return s3.NewFromConfig(s.Config, func(o *s3.Options) {
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.endpoint)
			o.UsePathStyle = true
		}
	})
}
