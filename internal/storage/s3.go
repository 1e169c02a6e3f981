package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"lectern/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store is the S3-compatible storage driver. Logical bucket names map to
// S3 buckets, optionally under a configured name prefix so one AWS account
// can host several deployments.
type S3Store struct {
	client       *s3.Client
	presign      *s3.PresignClient
	bucketPrefix string
	logger       *slog.Logger
}

// S3Config carries the explicit construction parameters for the driver.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the AWS endpoint for S3-compatible services;
	// empty uses AWS proper.
	Endpoint string
	// BucketPrefix is prepended to every logical bucket name.
	BucketPrefix string
}

// NewS3Store creates an S3 driver from static credentials.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:       client,
		presign:      s3.NewPresignClient(client),
		bucketPrefix: cfg.BucketPrefix,
		logger:       logger,
	}, nil
}

// Put stores bytes with PutObject.
func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName(bucket)),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		if ctx.Err() != nil {
			return &domain.UpstreamError{Provider: "storage", Err: err}
		}
		s.logger.Error("s3 put failed", "bucket", bucket, "key", key, "error", err)
		return &domain.StorageWriteError{Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// List enumerates keys with ListObjectsV2, following continuation tokens.
// Provider failures degrade to an empty result.
func (s *S3Store) List(ctx context.Context, bucket string) []string {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName(bucket)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("s3 list failed, returning empty result",
				"bucket", bucket,
				"error", err,
			)
			return nil
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || key == EmptyFolderPlaceholder {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys
}

// SignURL mints a presigned GET URL for one key. A HeadObject probe first
// turns requests for nonexistent keys into a sign failure, since presigning
// itself never touches the object.
func (s *S3Store) SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultSignTTL
	}

	name := s.bucketName(bucket)
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(name),
		Key:    aws.String(key),
	}); err != nil {
		if ctx.Err() != nil {
			return "", &domain.UpstreamError{Provider: "storage", Err: err}
		}
		return "", &domain.StorageSignError{Bucket: bucket, Key: key, Err: err}
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(name),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", &domain.StorageSignError{Bucket: bucket, Key: key, Err: err}
	}
	return req.URL, nil
}

func (s *S3Store) bucketName(bucket string) string {
	return s.bucketPrefix + bucket
}
