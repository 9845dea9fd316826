package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3PutObjectAPI is the part of *s3.Client the gateway needs
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3StorageGatewayImpl struct {
	client S3PutObjectAPI
	bucket string
	prefix string
}

// NewS3StorageGateway creates a Gateway writing to bucket, with every key placed under prefix
func NewS3StorageGateway(client S3PutObjectAPI, bucket, prefix string) Gateway {
	return &s3StorageGatewayImpl{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (g *s3StorageGatewayImpl) Upload(ctx context.Context, localPath, key string) error {
	if g.bucket == "" {
		return errors.New("s3 bucket is not configured")
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = file.Close() }()

	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(g.objectKey(key)),
		Body:        file,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", g.bucket, g.objectKey(key), err)
	}
	return nil
}

func (g *s3StorageGatewayImpl) Location(key string) string {
	return "s3://" + g.bucket + "/" + g.objectKey(key)
}

func (g *s3StorageGatewayImpl) objectKey(key string) string {
	return joinKey(g.prefix, key)
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

func contentType(localPath string) string {
	if path.Ext(localPath) == ".csv" {
		return "text/csv"
	}
	return "application/octet-stream"
}
