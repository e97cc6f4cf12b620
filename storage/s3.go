package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Options configure the S3 client.
type S3Options struct {
	// Region overrides the region from the shared AWS configuration.
	Region string

	// Endpoint points the client at an S3-compatible service (e.g. MinIO).
	Endpoint string

	// Client is used as is when set; other options are ignored.
	Client s3iface.S3API
}

// S3 serves staged files from a bucket prefix.
type S3 struct {
	Bucket string
	Prefix string
	client s3iface.S3API
}

// NewS3 creates an S3 backend for bucket and key prefix.
func NewS3(bucket, prefix string, opts S3Options) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	client := opts.Client
	if client == nil {
		cfg := aws.NewConfig()
		if opts.Region != "" {
			cfg = cfg.WithRegion(opts.Region)
		}
		if opts.Endpoint != "" {
			cfg = cfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
		}
		sess, err := session.NewSessionWithOptions(session.Options{
			Config:            *cfg,
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		client = s3.New(sess)
	}
	return &S3{Bucket: bucket, Prefix: prefix, client: client}, nil
}

func (s *S3) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

// Open implements Storage.
func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, s.wrap("fetching", name, err)
	}
	return out.Body, nil
}

// Delete implements Storage.
func (s *S3) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return s.wrap("deleting", name, err)
	}
	return nil
}

func (s *S3) wrap(op, name string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey:
			return fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.Bucket, s.key(name))
		}
	}
	return fmt.Errorf("%s S3 object s3://%s/%s: %w", op, s.Bucket, s.key(name), err)
}
