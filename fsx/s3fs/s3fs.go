// Package s3fs stores objects in an S3 (or S3 compatible) bucket.
package s3fs

import (
	"bytes"
	"context"

	"github.com/Abraxas-365/rxintake/fsx"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// PutObjectAPI is the slice of *s3.Client the store needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures the S3 client
type Options struct {
	Bucket       string
	Region       string
	Endpoint     string // custom endpoint (MinIO, LocalStack)
	UsePathStyle bool
	// PublicRead uploads with the public-read canned ACL
	PublicRead bool
}

// Store is an fsx.ObjectStore backed by S3
type Store struct {
	client PutObjectAPI
	bucket string
	acl    types.ObjectCannedACL
}

var _ fsx.ObjectStore = (*Store)(nil)

// New loads the default AWS configuration chain and builds the client
func New(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fsx.ErrorRegistry.New(fsx.CodeWriteFailed).WithCause(err).WithDetail("stage", "aws_config")
	}

	s3Opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.Region != "" {
		s3Opts.Region = opts.Region
	}
	if opts.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(opts.Endpoint)
	}

	logx.Info("s3 object store ready: bucket=%s region=%s", opts.Bucket, s3Opts.Region)
	return NewWithClient(s3.New(s3Opts), opts), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client PutObjectAPI, opts Options) *Store {
	acl := types.ObjectCannedACLPrivate
	if opts.PublicRead {
		acl = types.ObjectCannedACLPublicRead
	}
	return &Store{client: client, bucket: opts.Bucket, acl: acl}
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	clean, err := fsx.CleanKey(key)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(clean),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s.acl,
	})
	if err != nil {
		return "", fsx.ErrorRegistry.New(fsx.CodeWriteFailed).
			WithCause(err).
			WithDetail("bucket", s.bucket).
			WithDetail("key", clean)
	}
	return clean, nil
}
