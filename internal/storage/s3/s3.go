// Package s3 stores asset content in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/feed-import/internal/domain/asset"
)

// Config describes the bucket and how to reach it. Endpoint is set for
// MinIO or LocalStack; empty selects AWS.
type Config struct {
	Bucket          string `default:"assets" usage:"Bucket holding asset content"`
	Region          string `default:"us-east-1" usage:"Bucket region"`
	Endpoint        string `usage:"Custom S3 endpoint URL" flag:"s3-endpoint"`
	AccessKeyID     string `usage:"Static access key (falls back to the default AWS chain)" flag:"s3-access-key-id"`
	SecretAccessKey string `usage:"Static secret key" flag:"s3-secret-access-key"`
	UsePathStyle    bool   `default:"true" usage:"Address the bucket in the URL path" flag:"s3-path-style"`
}

// API is the subset of *s3.Client used by BlobStore.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

var _ asset.BlobStore = (*BlobStore)(nil)

// BlobStore implements asset.BlobStore on one bucket.
type BlobStore struct {
	api    API
	bucket string
	region string
	lg     *zap.Logger
}

// NewClient builds an S3 client from cfg. The HTTP client is used for every
// request, which lets callers install tracing.
func NewClient(ctx context.Context, cfg Config, httpClient aws.HTTPClient) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if httpClient != nil {
		opts = append(opts, config.WithHTTPClient(httpClient))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// New creates a BlobStore for cfg.Bucket.
func New(api API, cfg Config, lg *zap.Logger) *BlobStore {
	return &BlobStore{api: api, bucket: cfg.Bucket, region: cfg.Region, lg: lg}
}

// Put uploads data under key.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return errors.Wrapf(err, "put object %s", key)
	}
	s.lg.Debug("Object uploaded", zap.String("key", key), zap.Int("size", len(data)))
	return nil
}

// Get downloads the object at key. A missing object yields asset.ErrNotFound.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, asset.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get object %s", key)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read object %s", key)
	}
	return data, nil
}

// Exists reports whether an object is stored at key.
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "head object %s", key)
	}
	return true, nil
}

// Delete removes the object at key. Deleting a missing object succeeds.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "delete object %s", key)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *BlobStore) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return errors.Wrapf(err, "head bucket %s", s.bucket)
	}
	return nil
}

// EnsureBucket creates the bucket unless it already exists.
func (s *BlobStore) EnsureBucket(ctx context.Context) error {
	if err := s.Ping(ctx); err == nil {
		s.lg.Info("Bucket already exists", zap.String("bucket", s.bucket))
		return nil
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint.
	if s.region != "" && s.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.api.CreateBucket(ctx, in); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return errors.Wrapf(err, "create bucket %s", s.bucket)
	}

	s.lg.Info("Bucket created", zap.String("bucket", s.bucket))
	return nil
}
