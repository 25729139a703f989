package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/spec-kit/user-service/internal/config"
)

// ImageStore hosts profile images and hands back public URLs. The rest
// of the service only ever sees URLs; the hosting backend is opaque.
type ImageStore interface {
	Upload(ctx context.Context, filename, contentType string, reader io.Reader, size int64) (string, error)
	Remove(ctx context.Context, url string) error
}

// MinioImageStore stores profile images in a MinIO/S3 bucket.
type MinioImageStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioImageStore connects to the object store and ensures the
// bucket exists.
func NewMinioImageStore(ctx context.Context, cfg config.MediaConfig) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create media client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check media bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create media bucket %q: %w", cfg.Bucket, err)
		}
	}

	publicBase := cfg.PublicBase
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioImageStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload stores the image under a fresh object key and returns its
// public URL.
func (s *MinioImageStore) Upload(ctx context.Context, filename, contentType string, reader io.Reader, size int64) (string, error) {
	objectName := uuid.NewString() + path.Ext(filename)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return s.publicBase + "/" + objectName, nil
}

// Remove deletes the object behind a previously issued URL. Unknown
// URLs are ignored.
func (s *MinioImageStore) Remove(ctx context.Context, url string) error {
	if url == "" || !strings.HasPrefix(url, s.publicBase+"/") {
		return nil
	}
	objectName := strings.TrimPrefix(url, s.publicBase+"/")
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
