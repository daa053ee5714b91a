package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSConfig captures the parameters required to reach a bucket.
type GCSConfig struct {
	Bucket string
	Prefix string
}

// GCS is an Archive backed by a Google Cloud Storage bucket, for runs
// where the raw corpus must outlive the scraping host.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS wraps an existing storage client as an Archive.
func NewGCS(client *storage.Client, cfg GCSConfig) (*GCS, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCS{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (a *GCS) object(key string) string {
	if a.prefix == "" {
		return key
	}
	return a.prefix + "/" + key
}

// Contains reports whether the object for key exists.
func (a *GCS) Contains(ctx context.Context, key string) (bool, error) {
	_, err := a.client.Bucket(a.bucket).Object(a.object(key)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("object attrs %s: %w", key, err)
	}
	return true, nil
}

// Get downloads the object stored under key.
func (a *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := a.client.Bucket(a.bucket).Object(a.object(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer func() { _ = reader.Close() }()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Put uploads data under key. GCS object writes are atomic, so a partially
// uploaded object never becomes visible as a completed key.
func (a *GCS) Put(ctx context.Context, key string, data []byte) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	writer := a.client.Bucket(a.bucket).Object(a.object(key)).NewWriter(ctx)
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object %s: %w (close writer: %v)", key, err, closeErr)
		}
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// Keys lists every object under the configured prefix.
func (a *GCS) Keys(ctx context.Context) ([]string, error) {
	var query *storage.Query
	if a.prefix != "" {
		query = &storage.Query{Prefix: a.prefix + "/"}
	}
	it := a.client.Bucket(a.bucket).Objects(ctx, query)
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		key := attrs.Name
		if a.prefix != "" {
			key = strings.TrimPrefix(key, a.prefix+"/")
		}
		keys = append(keys, key)
	}
	return keys, nil
}
