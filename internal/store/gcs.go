package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

const gcsTimeout = 30 * time.Second

// GCSStore is a Cloud Storage-backed implementation of Store. Objects are
// named prefix/key+ext.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a new GCSStore with the specified bucket.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Get retrieves the raw value stored under key.
func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	reader, err := s.client.Bucket(s.bucket).Object(s.objectName(key, ".json")).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening gs://%s/%s: %w", s.bucket, s.objectName(key, ".json"), err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// Set stores a value with the given key.
func (s *GCSStore) Set(ctx context.Context, key string, value []byte) error {
	return s.write(ctx, s.objectName(key, ".json"), "application/json", value)
}

// GetJSON retrieves and unmarshals a JSON value.
func (s *GCSStore) GetJSON(ctx context.Context, key string, v any) error {
	return getJSON(ctx, s, key, v)
}

// SetJSON marshals and stores a value as JSON.
func (s *GCSStore) SetJSON(ctx context.Context, key string, v any) error {
	return setJSON(ctx, s, key, v)
}

// SetWithExtension stores raw bytes with a custom file extension.
func (s *GCSStore) SetWithExtension(ctx context.Context, key string, ext string, value []byte) error {
	return s.write(ctx, s.objectName(key, ext), contentType(ext), value)
}

// Close closes the GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) write(ctx context.Context, name, ctype string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = ctype

	if _, err := writer.Write(value); err != nil {
		writer.Close()
		return fmt.Errorf("writing gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("writing gs://%s/%s: %w", s.bucket, name, err)
	}
	return nil
}

func (s *GCSStore) objectName(key, ext string) string {
	if s.prefix == "" {
		return key + ext
	}
	return path.Join(s.prefix, key+ext)
}

func contentType(ext string) string {
	switch ext {
	case ".ics":
		return "text/calendar; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
