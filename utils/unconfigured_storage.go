package utils

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrStorageNotConfigured is the cause carried by every UnconfiguredStore error.
var ErrStorageNotConfigured = errors.New("object storage is not configured (STORAGE_BUCKET is empty)")

// UnconfiguredStore stands in when no bucket is set. Quotes without
// attachments still go through; anything touching an object fails.
type UnconfiguredStore struct{}

func (UnconfiguredStore) Store(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	return "", &StorageWriteError{Key: key, Err: ErrStorageNotConfigured}
}

func (UnconfiguredStore) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	return "", &StorageAccessError{Key: key, Err: ErrStorageNotConfigured}
}

func (UnconfiguredStore) Delete(_ context.Context, key string) error {
	return &StorageAccessError{Key: key, Err: ErrStorageNotConfigured}
}
