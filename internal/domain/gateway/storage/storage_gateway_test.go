package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
	body string
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if params.Body != nil {
		b, _ := io.ReadAll(params.Body)
		m.body = string(b)
	}
	args := m.Called(aws.ToString(params.Bucket), aws.ToString(params.Key), aws.ToString(params.ContentType))
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMinio struct {
	mock.Mock
}

func (m *mockMinio) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(bucketName, objectName, filePath, opts.ContentType)
	return minio.UploadInfo{}, args.Error(0)
}

func stage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "forecast_6h.csv")
	require.NoError(t, os.WriteFile(p, []byte("ville\nParis\n"), 0o644))
	return p
}

func TestS3Upload(t *testing.T) {
	client := new(mockS3)
	client.On("PutObject", "weather", "predictions/forecast_6h.csv", "text/csv").Return(&s3.PutObjectOutput{}, nil)

	gateway := NewS3StorageGateway(client, "weather", "predictions")
	require.NoError(t, gateway.Upload(context.Background(), stage(t), "forecast_6h.csv"))

	assert.Equal(t, "ville\nParis\n", client.body)
	assert.Equal(t, "s3://weather/predictions/forecast_6h.csv", gateway.Location("forecast_6h.csv"))
	client.AssertExpectations(t)
}

func TestS3Upload_Errors(t *testing.T) {
	client := new(mockS3)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	err := NewS3StorageGateway(client, "weather", "").Upload(context.Background(), stage(t), "x.csv")
	assert.ErrorContains(t, err, "access denied")

	err = NewS3StorageGateway(client, "weather", "").Upload(context.Background(), "/does/not/exist.csv", "x.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = NewS3StorageGateway(client, "", "").Upload(context.Background(), stage(t), "x.csv")
	assert.Error(t, err)
}

func TestMinioUpload(t *testing.T) {
	local := stage(t)
	client := new(mockMinio)
	client.On("FPutObject", "weather", "historical.csv", local, "text/csv").Return(nil).Once()
	client.On("FPutObject", "weather", "historical.csv", local, "text/csv").Return(errors.New("bucket gone"))

	gateway := NewMinioStorageGateway(client, "weather", "")
	require.NoError(t, gateway.Upload(context.Background(), local, "historical.csv"))
	assert.ErrorContains(t, gateway.Upload(context.Background(), local, "historical.csv"), "bucket gone")
	assert.Equal(t, "minio://weather/historical.csv", gateway.Location("historical.csv"))
}
