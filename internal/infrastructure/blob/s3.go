package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used here; tests substitute a fake.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores objects in an S3 bucket with KMS server-side encryption.
type S3 struct {
	API    S3API
	Bucket string
}

// NewS3 loads the default AWS config chain for region.
func NewS3(ctx context.Context, region, bucket string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3: S3_BUCKET is not set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return &S3{API: s3.NewFromConfig(cfg), Bucket: bucket}, nil
}

func (s *S3) Store(ctx context.Context, data []byte, name string) (string, error) {
	_, err := s.API.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.Bucket),
		Key:                  aws.String(name),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(http.DetectContentType(data)),
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", name, err)
	}
	return name, nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	_, err := s.API.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrNotFound
		}
		return fmt.Errorf("s3 delete %s: %w", ref, err)
	}
	return nil
}
