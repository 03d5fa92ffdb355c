package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of *s3.Client the bucket uses.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Config holds the connection settings for an S3-compatible bucket.
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string // optional: MinIO, R2, Spaces...
}

// S3Bucket implements Bucket on AWS S3 or any S3-compatible service.
type S3Bucket struct {
	client s3API
	bucket string
	logger *slog.Logger
}

// NewS3Bucket builds the client and makes sure the bucket exists.
func NewS3Bucket(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Bucket, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	b := newS3Bucket(client, cfg.Bucket, logger)
	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("s3 bucket ready", "bucket", cfg.Bucket, "region", cfg.Region, "endpoint", cfg.Endpoint)
	return b, nil
}

func newS3Bucket(client s3API, bucket string, logger *slog.Logger) *S3Bucket {
	return &S3Bucket{client: client, bucket: bucket, logger: logger}
}

func (b *S3Bucket) ensureBucket(ctx context.Context) error {
	if _, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}); err == nil {
		return nil
	}

	if _, err := b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(b.bucket)}); err != nil {
		return fmt.Errorf("storage: bucket %q does not exist and could not be created: %w", b.bucket, err)
	}
	b.logger.Info("created s3 bucket", "bucket", b.bucket)
	return nil
}

// Upload stores body at objectPath with a one-hour public cache lifetime.
func (b *S3Bucket) Upload(ctx context.Context, objectPath string, body io.Reader, contentType string) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(objectPath),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return fmt.Errorf("storage: uploading %s: %w", objectPath, err)
	}
	return nil
}

// Remove deletes all paths in a single DeleteObjects request.
func (b *S3Bucket) Remove(ctx context.Context, objectPaths []string) error {
	if len(objectPaths) == 0 {
		return nil
	}

	ids := make([]types.ObjectIdentifier, len(objectPaths))
	for i, p := range objectPaths {
		ids[i] = types.ObjectIdentifier{Key: aws.String(p)}
	}

	out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("storage: removing %d objects: %w", len(objectPaths), err)
	}

	var errs []error
	for _, e := range out.Errors {
		errs = append(errs, fmt.Errorf("storage: removing %s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
	}
	return errors.Join(errs...)
}
