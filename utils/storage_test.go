package utils

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeS3 struct {
	putErr    error
	headErr   error
	deleteErr error

	putKey  string
	putBody string
	putCT   string
	deleted []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.putKey = aws.ToString(in.Key)
	f.putBody = string(b)
	f.putCT = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	gotKey     string
	gotExpires time.Duration
	err        error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.gotKey = aws.ToString(in.Key)
	f.gotExpires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example.com/" + f.gotKey + "?X-Amz-Signature=abc"}, nil
}

func TestS3Store_Store(t *testing.T) {
	api := &fakeS3{}
	store := &S3Store{client: api, presigner: &fakePresigner{}, bucket: "quotes"}

	key, err := store.Store(context.Background(), "quote-uploads/1700-part.stl", strings.NewReader("solid part"), 10, "")
	require.NoError(t, err)

	assert.Equal(t, "quote-uploads/1700-part.stl", key)
	assert.Equal(t, "quote-uploads/1700-part.stl", api.putKey)
	assert.Equal(t, "solid part", api.putBody)
	assert.Equal(t, "application/octet-stream", api.putCT)
}

func TestS3Store_StoreFailureIsWriteError(t *testing.T) {
	store := &S3Store{client: &fakeS3{putErr: errors.New("AccessDenied")}, bucket: "quotes"}

	_, err := store.Store(context.Background(), "quote-uploads/1-a.pdf", strings.NewReader("x"), 1, "application/pdf")

	var we *StorageWriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "quote-uploads/1-a.pdf", we.Key)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestS3Store_Presign(t *testing.T) {
	presigner := &fakePresigner{}
	store := &S3Store{client: &fakeS3{}, presigner: presigner, bucket: "quotes"}

	url, err := store.Presign(context.Background(), "quote-uploads/1700-part.stl", PresignTTL)
	require.NoError(t, err)

	assert.Contains(t, url, "quote-uploads/1700-part.stl")
	assert.Equal(t, 7*24*time.Hour, presigner.gotExpires)
}

func TestS3Store_PresignMissingKey(t *testing.T) {
	presigner := &fakePresigner{}
	store := &S3Store{client: &fakeS3{headErr: &types.NotFound{}}, presigner: presigner, bucket: "quotes"}

	_, err := store.Presign(context.Background(), "quote-uploads/nope.stl", PresignTTL)

	var ae *StorageAccessError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.NotFound)
	assert.Empty(t, presigner.gotKey, "missing objects must not be signed")
}

func TestS3Store_PresignDenied(t *testing.T) {
	store := &S3Store{client: &fakeS3{headErr: errors.New("forbidden")}, presigner: &fakePresigner{}, bucket: "quotes"}

	_, err := store.Presign(context.Background(), "quote-uploads/1-a.pdf", PresignTTL)

	var ae *StorageAccessError
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.NotFound)
}

func TestS3Store_Delete(t *testing.T) {
	api := &fakeS3{}
	store := &S3Store{client: api, bucket: "quotes"}

	require.NoError(t, store.Delete(context.Background(), "quote-uploads/1-a.pdf"))
	assert.Equal(t, []string{"quote-uploads/1-a.pdf"}, api.deleted)

	api.deleteErr = errors.New("boom")
	assert.Error(t, store.Delete(context.Background(), "quote-uploads/1-a.pdf"))
}

func TestNewObjectStore_WithoutBucket(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := config.Config{Storage: config.Storage{Provider: "s3"}}

	store, err := NewObjectStore(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	assert.IsType(t, UnconfiguredStore{}, store)
	assert.Equal(t, 1, logs.FilterMessage("STORAGE_BUCKET not set, attachments are disabled").Len())

	_, err = store.Store(context.Background(), "quote-uploads/1-a.png", strings.NewReader("x"), 1, "image/png")
	var we *StorageWriteError
	require.ErrorAs(t, err, &we)
	assert.ErrorIs(t, err, ErrStorageNotConfigured)

	_, err = store.Presign(context.Background(), "quote-uploads/1-a.png", PresignTTL)
	var ae *StorageAccessError
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.NotFound)
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}
