package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appErr "github.com/muralkit/engine/pkg/errors"
)

type s3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3 creates an S3-backed object storage using the default AWS config
// chain. baseURL is the public prefix mapped onto keys; when empty the
// standard virtual-hosted bucket URL is used.
func NewS3(ctx context.Context, bucket, baseURL string) (ObjectStorage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "load aws config failed")
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return &s3Storage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *s3Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "put object failed")
	}
	return nil
}

func (s *s3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeNotFound, "get object failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "read object body failed")
	}
	return data, nil
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "delete object failed")
	}
	return nil
}

func (s *s3Storage) PublicURL(key string) string {
	return s.baseURL + "/" + key
}
