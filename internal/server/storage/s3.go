// Package storage issues presigned S3 URLs for training image archives.
// Clients upload straight to the bucket; the providers later fetch the
// archive through a presigned GET.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/photoforge/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// TrainingImagesKey returns a fresh object key for a model's image archive.
func TrainingImagesKey(userID, modelID string) string {
	return fmt.Sprintf("users/%s/models/%s/images-%s.zip", userID, modelID, uuid.New())
}

type S3 struct {
	region   string
	user     string
	password string
	endpoint string
	bucket   string
	validity time.Duration
}

func NewS3(cfg *sc.Config) *S3 {
	return &S3{
		region:   cfg.S3Region,
		user:     cfg.S3RootUser,
		password: cfg.S3RootPassword,
		endpoint: cfg.S3BaseEndpoint,
		bucket:   cfg.S3Bucket,
		validity: cfg.S3PresignValidityDuration,
	}
}

func (s *S3) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.user, s.password, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.endpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

func (s *S3) PresignPut(ctx context.Context, key string) (string, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/zip"),
	}, s3.WithPresignExpires(s.validity))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3) PresignGet(ctx context.Context, key string) (string, error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.validity))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
