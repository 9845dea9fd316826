package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// MinioObjectAPI is the part of *minio.Client the gateway needs
type MinioObjectAPI interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type minioStorageGatewayImpl struct {
	client MinioObjectAPI
	bucket string
	prefix string
}

// NewMinioStorageGateway creates a Gateway writing to a MinIO bucket
func NewMinioStorageGateway(client MinioObjectAPI, bucket, prefix string) Gateway {
	return &minioStorageGatewayImpl{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (g *minioStorageGatewayImpl) Upload(ctx context.Context, localPath, key string) error {
	if g.bucket == "" {
		return errors.New("minio bucket is not configured")
	}

	objectName := joinKey(g.prefix, key)
	_, err := g.client.FPutObject(ctx, g.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("put minio://%s/%s: %w", g.bucket, objectName, err)
	}
	return nil
}

func (g *minioStorageGatewayImpl) Location(key string) string {
	return "minio://" + g.bucket + "/" + joinKey(g.prefix, key)
}
