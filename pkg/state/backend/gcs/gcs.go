// Package gcs implements a Google Cloud Storage run-record backend.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/davidthor/auractl/pkg/state/backend"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

func init() {
	backend.Register("gcs", NewBackend)
}

// Backend stores records as objects in a GCS bucket.
type Backend struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewBackend creates a new GCS backend.
//
// Config keys: bucket (required), prefix, credentials (file path),
// credentials_json, endpoint (emulators; disables authentication).
func NewBackend(cfg map[string]string) (backend.Backend, error) {
	bucketName := cfg["bucket"]
	if bucketName == "" {
		return nil, fmt.Errorf("gcs backend requires 'bucket' configuration")
	}

	var opts []option.ClientOption
	if credentialsFile := cfg["credentials"]; credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if credentialsJSON := cfg["credentials_json"]; credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	if endpoint := cfg["endpoint"]; endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &Backend{
		client: client,
		bucket: bucketName,
		prefix: strings.Trim(cfg["prefix"], "/"),
	}, nil
}

func (b *Backend) Type() string {
	return "gcs"
}

func (b *Backend) Read(ctx context.Context, recordPath string) (io.ReadCloser, error) {
	objectPath := b.fullPath(recordPath)

	reader, err := b.object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record from gs://%s/%s: %w", b.bucket, objectPath, err)
	}

	return reader, nil
}

func (b *Backend) Write(ctx context.Context, recordPath string, data io.Reader) error {
	objectPath := b.fullPath(recordPath)

	writer := b.object(objectPath).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := io.Copy(writer, data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record to gs://%s/%s: %w", b.bucket, objectPath, err)
	}

	// The upload is only committed by Close.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to commit record to gs://%s/%s: %w", b.bucket, objectPath, err)
	}

	return nil
}

func (b *Backend) Delete(ctx context.Context, recordPath string) error {
	objectPath := b.fullPath(recordPath)

	err := b.object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete record from gs://%s/%s: %w", b.bucket, objectPath, err)
	}

	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := b.fullPath(prefix)

	var paths []string
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: fullPrefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", b.bucket, fullPrefix, err)
		}
		paths = append(paths, b.relPath(attrs.Name))
	}

	return paths, nil
}

func (b *Backend) Exists(ctx context.Context, recordPath string) (bool, error) {
	objectPath := b.fullPath(recordPath)

	_, err := b.object(objectPath).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check gs://%s/%s: %w", b.bucket, objectPath, err)
	}

	return true, nil
}

// Close releases the underlying storage client.
func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) object(objectPath string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(objectPath)
}

func (b *Backend) fullPath(recordPath string) string {
	if b.prefix == "" {
		return recordPath
	}
	return path.Join(b.prefix, recordPath)
}

func (b *Backend) relPath(name string) string {
	if b.prefix == "" {
		return name
	}
	return strings.TrimPrefix(name, b.prefix+"/")
}

var _ backend.Backend = (*Backend)(nil)
