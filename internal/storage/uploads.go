// Package storage signs direct-to-S3 uploads for user documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/upb/tradedesk/config"
	"github.com/upb/tradedesk/models"
)

// ErrUnsupportedContentType is returned for content types with no known extension
var ErrUnsupportedContentType = errors.New("unsupported content type")

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// UploadSigner issues presigned PUT URLs. The server never handles file bytes.
type UploadSigner struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	now     func() time.Time
}

// NewUploadSigner builds an S3 presign client from cfg. Static credentials are
// used when an access key is configured, otherwise the default AWS chain.
func NewUploadSigner(ctx context.Context, cfg config.StorageConfig) (*UploadSigner, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &UploadSigner{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		expiry:  cfg.UploadURLExpiry,
		now:     time.Now,
	}, nil
}

// SignUpload returns a URL that lets subject PUT one object of the declared
// content type under a fresh random key in their upload prefix.
func (s *UploadSigner) SignUpload(ctx context.Context, subject string, input *models.UploadURLInput) (*models.UploadURL, error) {
	ext, ok := extensions[input.ContentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, input.ContentType)
	}
	key := models.UploadPrefix(subject) + uuid.NewString() + ext

	issuedAt := s.now()
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(input.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &models.UploadURL{
		URL:         req.URL,
		Key:         key,
		ContentType: input.ContentType,
		ExpiresAt:   issuedAt.Add(s.expiry).UTC(),
	}, nil
}
