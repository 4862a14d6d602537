package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/ebdesignwerks/quotebackend/config"
	"google.golang.org/api/option"
)

// GCSStore keeps attachments in a Google Cloud Storage bucket and hands out
// V4 signed URLs.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, sc config.Storage) (*GCSStore, error) {
	if sc.Bucket == "" {
		return nil, fmt.Errorf("missing STORAGE_BUCKET")
	}

	var opts []option.ClientOption
	if sc.GCSCredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, sc.GCSCredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStore{client: client, bucket: sc.Bucket}, nil
}

func (g *GCSStore) Store(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeOrDefault(contentType)
	w.CacheControl = "no-cache"

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", &StorageWriteError{Key: key, Err: fmt.Errorf("upload copy: %w", err)}
	}
	if err := w.Close(); err != nil {
		return "", &StorageWriteError{Key: key, Err: fmt.Errorf("upload close: %w", err)}
	}
	return key, nil
}

func (g *GCSStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx); err != nil {
		return "", &StorageAccessError{
			Key:      key,
			NotFound: errors.Is(err, storage.ErrObjectNotExist),
			Err:      err,
		}
	}

	url, err := g.client.Bucket(g.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", &StorageAccessError{Key: key, Err: err}
	}
	return url, nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	if err := g.client.Bucket(g.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
