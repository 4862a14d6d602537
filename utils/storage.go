package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ebdesignwerks/quotebackend/config"
	"go.uber.org/zap"
)

// PresignTTL is how long attachment download links stay valid.
const PresignTTL = 7 * 24 * time.Hour

// ObjectStore keeps uploaded attachments. Callers choose the key.
type ObjectStore interface {
	Store(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// StorageWriteError is returned when an object could not be written.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageAccessError is returned when an object is missing or cannot be read.
type StorageAccessError struct {
	Key      string
	NotFound bool
	Err      error
}

func (e *StorageAccessError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("access %s: object not found", e.Key)
	}
	return fmt.Sprintf("access %s: %v", e.Key, e.Err)
}

func (e *StorageAccessError) Unwrap() error { return e.Err }

// NewObjectStore builds the store selected by STORAGE_PROVIDER. Without a
// bucket it returns an UnconfiguredStore and logs a warning.
func NewObjectStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (ObjectStore, error) {
	if cfg.Storage.Bucket == "" {
		logger.Warn("STORAGE_BUCKET not set, attachments are disabled",
			zap.String("provider", cfg.Storage.Provider))
		return UnconfiguredStore{}, nil
	}
	if cfg.Storage.Provider == "gcs" {
		store, err := NewGCSStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := NewS3Store(ctx, cfg.Storage, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return store, nil
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store talks to AWS S3 or to an S3 compatible endpoint such as Cloudflare R2.
type S3Store struct {
	client    s3API
	presigner s3Presigner
	bucket    string
}

func NewS3Store(ctx context.Context, sc config.Storage, region string) (*S3Store, error) {
	if sc.Bucket == "" {
		return nil, fmt.Errorf("missing STORAGE_BUCKET")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if sc.Endpoint != "" {
		// R2 and friends ignore the region but the signer still needs one.
		region = "auto"
	}
	opts = append(opts, awsconfig.WithRegion(region))
	if sc.AccessKeyID != "" && sc.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    sc.Bucket,
	}, nil
}

func (s *S3Store) Store(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentTypeOrDefault(contentType)),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", &StorageWriteError{Key: key, Err: err}
	}
	return key, nil
}

// Presign checks that the object exists before signing, a signature alone
// would happily be produced for a missing key.
func (s *S3Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		return "", &StorageAccessError{
			Key:      key,
			NotFound: errors.As(err, &nf) || errors.As(err, &nsk),
			Err:      err,
		}
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &StorageAccessError{Key: key, Err: err}
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
