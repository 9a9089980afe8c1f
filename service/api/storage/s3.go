package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	keyPrefix = "charts"

	defaultPresignExpiry = time.Hour
)

// Config describes an S3 compatible bucket that chart images are published to
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
	// PresignExpiry bounds presigned urls handed out when there is no PublicBaseURL
	PresignExpiry time.Duration
}

type putter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Uploader publishes chart images and hands back a url a phone can fetch them from
type Uploader struct {
	uploader      putter
	presigner     presigner
	bucket        string
	publicBaseURL string
	expiry        time.Duration
	log           zerolog.Logger
}

func NewUploader(ctx context.Context, cfg Config, log zerolog.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newUploader(manager.NewUploader(client), s3.NewPresignClient(client), cfg, log), nil
}

func newUploader(p putter, ps presigner, cfg Config, log zerolog.Logger) *Uploader {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}

	return &Uploader{
		uploader:      p,
		presigner:     ps,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		expiry:        expiry,
		log:           log.With().Str("component", "storage").Logger(),
	}
}

// Upload stores body under a fresh key and returns a url it can be fetched from. Objects are not public, so
// without a PublicBaseURL in front of the bucket that url is a presigned GET.
func (u *Uploader) Upload(ctx context.Context, name string, contentType string, body []byte) (string, error) {
	key := path.Join(keyPrefix, uuid.NewString(), name)

	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading %s to %s: %w", name, u.bucket, err)
	}

	u.log.Debug().Str("key", key).Int("bytes", len(body)).Msg("uploaded object")

	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + key, nil
	}

	req, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.expiry))
	if err != nil {
		return "", fmt.Errorf("error presigning %s: %w", key, err)
	}

	return req.URL, nil
}
