package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

var errS3Disabled = errors.New("s3 sink is not configured; set s3.bucket and credentials to enable uploads")

// S3Options configures the S3-compatible sink.
type S3Options struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKeyID  string
	SecretKey    string
	Prefix       string
	UsePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads archives to S3-compatible storage. The target is appended to
// the configured key prefix.
type S3Sink struct {
	bucket   string
	prefix   string
	client   objectPutter
	disabled bool
}

func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	sink := &S3Sink{
		bucket: strings.TrimSpace(opts.Bucket),
		prefix: strings.Trim(opts.Prefix, "/"),
	}

	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretKey)
	if sink.bucket == "" || accessKey == "" || secretKey == "" {
		slog.Warn("s3 bucket or credentials not set; s3 sink disabled")
		sink.disabled = true
		return sink, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if opts.Endpoint != "" {
			return aws.Endpoint{
				URL:           opts.Endpoint,
				PartitionID:   "aws",
				SigningRegion: opts.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	sink.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
	})
	return sink, nil
}

// Enabled reports whether the sink has a bucket and credentials.
func (s *S3Sink) Enabled() bool {
	return !s.disabled
}

func (s *S3Sink) Deliver(ctx context.Context, target, name string, data []byte) (string, error) {
	if s.disabled {
		return "", errS3Disabled
	}
	key := s.objectKey(target, name)
	contentType := mimetype.Detect(data).String()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Sink) objectKey(target, name string) string {
	parts := make([]string, 0, 3)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	if t := strings.Trim(target, "/"); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, name)
	return path.Join(parts...)
}
