package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dishmap/internal/domain"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 keeps media files in a bucket under the "uploads/" key prefix.
type S3 struct {
	api        S3API
	bucket     string
	publicBase string
}

var _ domain.BlobStore = (*S3)(nil)

// NewS3FromEnv builds the client from the default AWS credential chain.
func NewS3FromEnv(ctx context.Context, region, bucket, publicBase string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket, publicBase), nil
}

func NewS3(api S3API, bucket, publicBase string) *S3 {
	return &S3{api: api, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}
}

func (s *S3) key(name string) string { return "uploads/" + name }

func (s *S3) Save(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", name, err)
	}
	return s.publicBase + "/" + s.key(name), nil
}

func (s *S3) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", name, err)
	}
	return nil
}
