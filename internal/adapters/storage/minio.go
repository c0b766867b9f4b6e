package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ksicht/ksicht/pkg/metrics"
)

// MinioStore implements ObjectStore on a MinIO (or other S3) backend.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// MinioConfig carries the connection settings for NewMinioStore.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioStore connects to the backend and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrStoreFailed, cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: check bucket %s: %w", ErrStoreFailed, cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%w: create bucket %s: %w", ErrStoreFailed, cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error {
	start := time.Now()
	_, err := s.client.PutObject(ctx, s.bucket, key, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	metrics.RecordStorageOperationLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStorageError()
		return fmt.Errorf("%w: put %s: %w", ErrStoreFailed, key, err)
	}
	metrics.RecordStorageUpload()
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (Object, error) {
	start := time.Now()
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		metrics.RecordStorageError()
		return Object{}, fmt.Errorf("%w: get %s: %w", ErrStoreFailed, key, err)
	}

	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	metrics.RecordStorageOperationLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return Object{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		metrics.RecordStorageError()
		return Object{}, fmt.Errorf("%w: stat %s: %w", ErrStoreFailed, key, err)
	}

	metrics.RecordStorageDownload()
	return Object{Reader: obj, Size: info.Size, ContentType: info.ContentType}, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	metrics.RecordStorageOperationLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStorageError()
		return fmt.Errorf("%w: delete %s: %w", ErrStoreFailed, key, err)
	}
	return nil
}
