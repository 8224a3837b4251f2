package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/rpviz/pkg/cache"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// S3Config holds S3 connection settings. Empty credentials fall back to the
// default AWS credential chain.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string // default us-east-1
	Endpoint        string // optional, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool

	HTTPClient *http.Client  // optional
	Backoff    cache.Backoff // zero selects cache.DefaultBackoff
}

// S3Publisher uploads documents to a bucket.
type S3Publisher struct {
	client  *s3.Client
	bucket  string
	prefix  string
	backoff cache.Backoff
	Logger  *log.Logger
}

// NewS3 creates an S3 publisher. The client does not retry on its own;
// transient failures are retried by Publish with backoff.
func NewS3(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, rperrors.New(rperrors.ErrCodeInvalidInput, "s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		o.RetryMaxAttempts = 1
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	backoff := cfg.Backoff
	if backoff.Attempts == 0 {
		backoff = cache.DefaultBackoff
	}
	return &S3Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, backoff: backoff}, nil
}

// Publish uploads data under prefix/name and returns its s3:// URL.
func (p *S3Publisher) Publish(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	key := path.Join(p.prefix, name)
	attempt := 0
	err := p.backoff.Retry(ctx, func() error {
		attempt++
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(p.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentType:   aws.String(ContentType),
			ContentLength: aws.Int64(int64(len(data))),
		})
		if err != nil && transient(err) {
			if p.Logger != nil {
				p.Logger.Warn("upload failed, retrying", "key", key, "attempt", attempt, "err", err)
			}
			return cache.Retryable(fmt.Errorf("%w: %w", cache.ErrNetwork, err))
		}
		return err
	})
	if err != nil {
		return "", rperrors.Wrap(rperrors.ErrCodeIO, err, "upload s3://%s/%s", p.bucket, key)
	}
	return "s3://" + p.bucket + "/" + key, nil
}

// transient reports whether an S3 error is worth retrying: throttling,
// server errors and network failures.
func transient(err error) bool {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		code := re.HTTPStatusCode()
		return code == http.StatusTooManyRequests || code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
