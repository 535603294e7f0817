package file

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// S3Config is read from S3_* variables. An empty Bucket disables downloads.
type S3Config struct {
	Bucket         string        `env:"S3_BUCKET"`
	Region         string        `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string        `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string        `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint       string        `env:"S3_ENDPOINT"`
	ForcePathStyle bool          `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	LinkTTL        time.Duration `env:"S3_LINK_TTL" envDefault:"24h"`
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

// HeadAPI is the subset of *s3.Client used to verify objects.
type HeadAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// PresignAPI is the subset of *s3.PresignClient used to sign links.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Presigner signs GET links for objects in one bucket.
type S3Presigner struct {
	head    HeadAPI
	presign PresignAPI
	bucket  string
	ttl     time.Duration
}

type S3Option func(*s3Options)

type s3Options struct {
	head       HeadAPI
	presign    PresignAPI
	httpClient *http.Client
}

// WithClients injects pre-built clients, bypassing AWS config loading.
func WithClients(head HeadAPI, presign PresignAPI) S3Option {
	return func(o *s3Options) {
		o.head = head
		o.presign = presign
	}
}

func WithHTTPClient(c *http.Client) S3Option {
	return func(o *s3Options) { o.httpClient = c }
}

func NewS3Presigner(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Presigner, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, errors.Join(apperr.ErrConfiguration, ErrInvalidConfig)
	}
	o := &s3Options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.head == nil || o.presign == nil {
		awsOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOpts = append(awsOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		if o.httpClient != nil {
			awsOpts = append(awsOpts, config.WithHTTPClient(o.httpClient))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, awsOpts...)
		if err != nil {
			return nil, errors.Join(apperr.ErrConfiguration, ErrFailedToLoadConfig, err)
		}
		client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
		o.head = client
		o.presign = s3.NewPresignClient(client)
	}

	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &S3Presigner{head: o.head, presign: o.presign, bucket: cfg.Bucket, ttl: ttl}, nil
}

// Link returns a presigned GET URL for key. Keys may be given bare or as
// "s3://<bucket>/<key>" for the configured bucket.
func (p *S3Presigner) Link(ctx context.Context, key string) (string, error) {
	key, err := p.objectKey(key)
	if err != nil {
		return "", err
	}

	if _, err := p.head.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return "", classifyS3Error(err, "head")
	}

	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", errors.Join(ErrFailedToPresign, classifyS3Error(err, "presign"))
	}
	return req.URL, nil
}

func (p *S3Presigner) objectKey(raw string) (string, error) {
	key := raw
	if rest, ok := strings.CutPrefix(raw, "s3://"); ok {
		bucket, k, found := strings.Cut(rest, "/")
		if !found || bucket != p.bucket {
			return "", errors.Join(apperr.ErrValidation, ErrInvalidKey)
		}
		key = k
	}
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", errors.Join(apperr.ErrValidation, ErrInvalidKey)
	}
	return key, nil
}

func classifyS3Error(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(apperr.ErrUpstreamUnavailable, err)
	}

	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return errors.Join(apperr.ErrNotFound, ErrFileNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return errors.Join(apperr.ErrNotFound, ErrFileNotFound)
		case "AccessDenied", "Forbidden":
			return errors.Join(apperr.ErrConfiguration, ErrAccessDenied)
		}
	}
	return errors.Join(apperr.ErrUpstreamUnavailable, ErrServiceUnavailable, fmt.Errorf("s3 %s: %w", op, err))
}
