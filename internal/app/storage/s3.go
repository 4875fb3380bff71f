package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"livechat/internal/pkg/logx"
)

// s3KeyPrefix groups chat images inside the bucket.
const s3KeyPrefix = "chat-images/"

// s3Store uploads images to an S3-compatible bucket; objects are served from publicURL.
type s3Store struct {
	bucket    string
	publicURL string
	uploader  *manager.Uploader
}

// newS3Client initializes an S3 client against a custom, path-style endpoint.
func newS3Client(cfg ServiceConfig) (*s3.Client, error) {
	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	return s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	}), nil
}

func newS3Store(cfg ServiceConfig) (*s3Store, error) {
	if cfg.S3BucketName == "" || cfg.S3PublicURL == "" {
		return nil, errors.New("storage: s3 bucket and public URL are required")
	}

	client, err := newS3Client(cfg)
	if err != nil {
		return nil, err
	}

	return &s3Store{
		bucket:    cfg.S3BucketName,
		publicURL: strings.TrimRight(cfg.S3PublicURL, "/"),
		uploader:  manager.NewUploader(client),
	}, nil
}

// Save streams body to the bucket. The uploader aborts multipart uploads on
// failure, so a failed Save leaves no object behind.
func (s *s3Store) Save(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	key := s3KeyPrefix + name

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logx.Error(err, "S3 upload failed", "key", key)
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}

	return s.objectURL(key), nil
}

func (s *s3Store) Owns(url string) bool {
	name, ok := strings.CutPrefix(url, s.objectURL(s3KeyPrefix))
	return ok && name != "" && !strings.ContainsAny(name, "/\\?#")
}

func (s *s3Store) objectURL(key string) string {
	return s.publicURL + "/" + key
}
