// Package storage archives generated files in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Config configures the MinIO client.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Archiver stores export files under a bucket.
type Archiver interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// MinioArchiver implements Archiver with minio-go.
type MinioArchiver struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

// NewMinioArchiver creates the client and ensures the bucket exists.
func NewMinioArchiver(ctx context.Context, cfg Config, log zerolog.Logger) (*MinioArchiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("MinIO connected")

	return &MinioArchiver{
		client: client,
		bucket: cfg.Bucket,
		log:    log.With().Str("component", "minio_archiver").Logger(),
	}, nil
}

// Put uploads data and returns the object path.
func (a *MinioArchiver) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", name, err)
	}
	a.log.Debug().Str("object", name).Int("bytes", len(data)).Msg("Archived file")
	return "/" + a.bucket + "/" + name, nil
}
