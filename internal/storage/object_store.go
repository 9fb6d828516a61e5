package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"timetrack/api/internal/config"
)

// ObjectStore keeps exported reports in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	bucket := s.cfg.BucketReports
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// PutReport uploads body under key and returns a presigned download link
// valid for the configured TTL.
func (s *ObjectStore) PutReport(ctx context.Context, key string, body []byte, contentType string) (string, time.Time, error) {
	_, err := s.client.PutObject(ctx, s.cfg.BucketReports, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("put object %s: %w", key, err)
	}

	ttl := s.presignTTL()
	expires := time.Now().Add(ttl).UTC()
	link, err := s.client.PresignedGetObject(ctx, s.cfg.BucketReports, key, ttl, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return link.String(), expires, nil
}

// presignTTL clamps the configured TTL into the range S3 accepts.
func (s *ObjectStore) presignTTL() time.Duration {
	ttl := s.cfg.PresignTTL
	switch {
	case ttl < time.Second:
		return 15 * time.Minute
	case ttl > 7*24*time.Hour:
		return 7 * 24 * time.Hour
	}
	return ttl
}

// Ping checks that the reports bucket is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.cfg.BucketReports)
	return err
}
