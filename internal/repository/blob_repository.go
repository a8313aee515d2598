package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

// BlobRepository streams stored submission bytes by location.
type BlobRepository interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

type MinIOBlobRepository struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger

	checkMu      sync.Mutex
	bucketExists bool
}

func NewMinIOBlobRepository(endpoint, accessKey, secretKey, bucket string, useSSL bool, connectTimeout time.Duration, logger zerolog.Logger) (*MinIOBlobRepository, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	repo := &MinIOBlobRepository{
		client: client,
		bucket: bucket,
		logger: logger,
	}

	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// The service keeps running if MinIO is late; the bucket is checked again on demand.
	if err := repo.checkBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", endpoint).
			Str("bucket", bucket).
			Msg("MinIO not ready during startup")
	}

	logger.Info().
		Str("endpoint", endpoint).
		Str("bucket", bucket).
		Bool("ssl", useSSL).
		Msg("Connected to MinIO")

	return repo, nil
}

func (r *MinIOBlobRepository) checkBucket(ctx context.Context) error {
	r.checkMu.Lock()
	defer r.checkMu.Unlock()
	if r.bucketExists {
		return nil
	}

	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", r.bucket)
	}

	r.bucketExists = true
	return nil
}

// Fetch accepts either a bare object key or an s3://bucket/key location.
func (r *MinIOBlobRepository) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key := r.resolve(location)
	if key == "" {
		return nil, fmt.Errorf("empty object key in %q: %w", location, models.ErrNotFound)
	}
	if bucket == r.bucket {
		if err := r.checkBucket(ctx); err != nil {
			return nil, err
		}
	}

	objInfo, err := r.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %s/%s: %w", bucket, key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	object, err := r.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	r.logger.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", objInfo.Size).
		Msg("Streaming object from MinIO")

	return object, nil
}

func (r *MinIOBlobRepository) resolve(location string) (string, string) {
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		return bucket, key
	}
	return r.bucket, strings.TrimPrefix(location, "/")
}

// FilesystemBlobRepository serves blobs from a local directory tree.
type FilesystemBlobRepository struct {
	root   string
	logger zerolog.Logger
}

func NewFilesystemBlobRepository(root string, logger zerolog.Logger) *FilesystemBlobRepository {
	return &FilesystemBlobRepository{
		root:   root,
		logger: logger,
	}
}

func (r *FilesystemBlobRepository) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel := filepath.Clean("/" + strings.TrimPrefix(location, "file://"))
	file, err := os.Open(filepath.Join(r.root, rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file %s: %w", rel, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}
