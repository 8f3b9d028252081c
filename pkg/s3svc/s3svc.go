// Package s3svc checks AWS S3 buckets before they are registered on the
// storage backend.
package s3svc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sgaunet/hcconsole/pkg/config"
)

var (
	// ErrMissingBucket is returned when the storage path names no bucket.
	ErrMissingBucket = errors.New("storage path does not name a bucket")
	// ErrBucketUnreachable is returned when HeadBucket fails.
	ErrBucketUnreachable = errors.New("bucket is not reachable")
)

// Probe describes the bucket to check.
type Probe struct {
	// Path is the storage path, "bucket" or "bucket/prefix".
	Path      string
	AccessKey string
	SecretKey string
	Region    string
}

// Service is the struct for the S3 service
type Service struct {
	cfg config.S3Config
	log *slog.Logger
}

// NewS3Svc creates a new S3 service
// By default the logger is set to write to /dev/null
func NewS3Svc(cfg config.S3Config) *Service {
	return &Service{
		cfg: cfg,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger
func (s *Service) SetLogger(log *slog.Logger) {
	s.log = log
}

// BucketFromPath returns the bucket name of a storage path.
func BucketFromPath(storagePath string) string {
	bucket, _, _ := strings.Cut(strings.Trim(storagePath, "/"), "/")
	return bucket
}

// CheckBucket verifies that the probe's credentials can reach its bucket.
func (s *Service) CheckBucket(ctx context.Context, p Probe) error {
	bucket := BucketFromPath(p.Path)
	if bucket == "" {
		return ErrMissingBucket
	}

	client, err := s.client(ctx, p)
	if err != nil {
		return err
	}

	s.log.Debug("Checking bucket", slog.String("bucket", bucket))
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		s.log.Info("Bucket check failed", slog.String("bucket", bucket), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %w", ErrBucketUnreachable, bucket, err)
	}
	return nil
}

// GetAwsConfig returns an aws.Config for the probe. Explicit keys win over
// the default credential chain.
func (s *Service) GetAwsConfig(ctx context.Context, p Probe) (aws.Config, error) {
	region := p.Region
	if region == "" {
		region = s.cfg.Region
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if p.AccessKey != "" || p.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AccessKey, p.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		s.log.Error("Error loading aws config", slog.String("error", err.Error()))
		return cfg, fmt.Errorf("error loading aws config: %w", err)
	}
	return cfg, nil
}

func (s *Service) client(ctx context.Context, p Probe) (*s3.Client, error) {
	cfg, err := s.GetAwsConfig(ctx, p)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
