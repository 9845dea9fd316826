package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-inference/configs"
)

func TestNewSession_StaticCredentialsAndEndpoint(t *testing.T) {
	session, err := NewSession(context.Background(), configs.CloudConfig{
		AWSRegion:          "eu-west-3",
		AWSEndpoint:        "http://localhost:4566",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-3", session.Config.Region)

	creds, err := session.Config.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)

	s3Client := session.NewS3Client()
	assert.True(t, s3Client.Options().UsePathStyle)
	require.NotNil(t, s3Client.Options().BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *s3Client.Options().BaseEndpoint)

	sqsClient := session.NewSqsClient()
	require.NotNil(t, sqsClient.Options().BaseEndpoint)
}

func TestNewSession_NoEndpoint(t *testing.T) {
	session, err := NewSession(context.Background(), configs.CloudConfig{AWSRegion: "us-east-1"})
	require.NoError(t, err)

	s3Client := session.NewS3Client()
	assert.False(t, s3Client.Options().UsePathStyle)
	assert.Nil(t, s3Client.Options().BaseEndpoint)
}
