// Package storage keeps uploaded PDF bytes in an object storage bucket.
// When no bucket is configured the document service falls back to storing
// bytes inline in MongoDB.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type bucketStore struct {
	log    *logger.Logger
	client *gcs.Client
	bucket string
}

// NewBucketStore reads DOCUMENT_BUCKET_NAME and connects to GCS.
func NewBucketStore(ctx context.Context, log *logger.Logger) (BlobStore, error) {
	bucket := os.Getenv("DOCUMENT_BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var DOCUMENT_BUCKET_NAME")
	}

	client, err := gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &bucketStore{
		log:    log.With("component", "BucketStore"),
		client: client,
		bucket: bucket,
	}, nil
}

func (s *bucketStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object writer %s: %w", key, err)
	}
	return nil
}

func (s *bucketStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (s *bucketStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
