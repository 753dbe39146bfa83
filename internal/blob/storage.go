// Package blob wraps MinIO/S3 interactions for uploaded documents.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config carries the connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Storage uploads raw documents and issues presigned download URLs.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client for the configured endpoint.
func New(cfg Config) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket makes sure the bucket exists before use. Safe to call on
// every startup.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload streams the raw content under the given key and returns the blob URI
// recorded on the document row.
func (s *Storage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts); err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// PresignDownload returns a signed GET URL for a previously uploaded blob URI.
func (s *Storage) PresignDownload(ctx context.Context, blobURI string, ttl time.Duration) (string, error) {
	key, err := s.objectKey(blobURI)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func (s *Storage) objectKey(blobURI string) (string, error) {
	prefix := fmt.Sprintf("s3://%s/", s.bucket)
	if !strings.HasPrefix(blobURI, prefix) {
		return "", fmt.Errorf("blob uri %q not in bucket %s", blobURI, s.bucket)
	}
	return strings.TrimPrefix(blobURI, prefix), nil
}
