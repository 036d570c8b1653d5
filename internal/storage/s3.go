package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/config"
)

// objectPutter is the subset of the S3 client used by S3.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores artifacts in an S3 bucket under an optional prefix.
type S3 struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3 loads AWS configuration for cfg.S3Region using the default
// credential chain unless WithStaticCredentials is given.
func NewS3(ctx context.Context, cfg config.StorageConfig, opts ...S3Option) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, eris.New("storage: s3 bucket is required")
	}
	o := s3Options{}
	for _, opt := range opts {
		opt(&o)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if o.accessKey != "" && o.secretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "storage: load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
			so.UsePathStyle = true
		}
	})
	return newS3(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func newS3(client objectPutter, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

type s3Options struct {
	accessKey string
	secretKey string
	endpoint  string
}

// S3Option configures NewS3.
type S3Option func(*s3Options)

// WithStaticCredentials uses fixed credentials instead of the default chain.
func WithStaticCredentials(accessKey, secretKey string) S3Option {
	return func(o *s3Options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
	}
}

// WithEndpoint points the client at an S3-compatible endpoint such as MinIO.
func WithEndpoint(url string) S3Option {
	return func(o *s3Options) { o.endpoint = url }
}

// Put uploads body and returns its s3:// URI.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	fullKey := key
	if s.prefix != "" {
		fullKey = path.Join(s.prefix, key)
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", eris.Wrapf(err, "storage: put s3://%s/%s", s.bucket, fullKey)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, fullKey), nil
}
