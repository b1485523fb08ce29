package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options selects the bucket strips are copied to. An empty Endpoint
// means AWS itself; anything else (MinIO, Garage) uses path-style URLs.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// putObjectAPI is the part of the S3 client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader puts strips into a bucket.
type S3Uploader struct {
	client putObjectAPI
	opts   S3Options
}

// NewS3Uploader loads the AWS configuration. Static keys win over the
// default credential chain when both are set.
func NewS3Uploader(ctx context.Context, o S3Options) (*S3Uploader, error) {
	if o.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	if o.Region == "" {
		o.Region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, opts: o}, nil
}

// Key returns the object key for a file name.
func (u *S3Uploader) Key(name string) string {
	if u.opts.Prefix == "" {
		return name
	}
	return path.Join(u.opts.Prefix, name)
}

// Upload stores one JPEG and returns its s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, name string, jpeg []byte) (string, error) {
	key := u.Key(name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(jpeg),
		ContentType:   aws.String("image/jpeg"),
		ContentLength: aws.Int64(int64(len(jpeg))),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", u.opts.Bucket, key, err)
	}
	return "s3://" + u.opts.Bucket + "/" + key, nil
}
