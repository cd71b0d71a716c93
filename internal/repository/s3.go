package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"finalscore/bot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3Config holds connection settings for S3 or an S3-compatible store (MinIO, R2)
type S3Config struct {
	Endpoint       string // Empty for AWS
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// S3Store keeps the baseline as a single CSV object
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Store creates a baseline store writing the object key in cfg.Bucket
func NewS3Store(ctx context.Context, cfg S3Config, key string) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(normaliseEndpoint(cfg.Endpoint))
		}
		o.UsePathStyle = cfg.ForcePathStyle
		// Most S3-compatible providers reject the default CRC trailers
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Store{client: client, bucket: cfg.Bucket, key: key}, nil
}

// Load reads the baseline object. A missing object is an empty baseline.
func (s *S3Store) Load(ctx context.Context) ([]models.GameRecord, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return []models.GameRecord{}, nil
		}
		return nil, fmt.Errorf("failed to get baseline object: %w", err)
	}
	defer out.Body.Close()

	return decodeBaseline(out.Body, "s3://"+s.bucket+"/"+s.key)
}

// Save replaces the baseline object. A single PUT is atomic for readers.
func (s *S3Store) Save(ctx context.Context, games []models.GameRecord) error {
	var buf bytes.Buffer
	if err := encodeBaseline(&buf, games); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to put baseline object: %w", err)
	}

	log.Debug().Str("bucket", s.bucket).Str("key", s.key).Int("games", len(games)).Msg("Baseline object saved")
	return nil
}

// Clear deletes the baseline object
func (s *S3Store) Clear(ctx context.Context) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete baseline object: %w", err)
	}
	return nil
}

// Health checks the bucket is reachable with the configured credentials
func (s *S3Store) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3 health check failed for bucket %s: %w", s.bucket, err)
	}
	return nil
}

// normaliseEndpoint adds http:// to an endpoint given without a scheme
func normaliseEndpoint(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return endpoint
	}
	return "http://" + endpoint
}
