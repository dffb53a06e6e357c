package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore puts uploads into an S3-compatible bucket.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	baseURL  string
	maxBytes int64
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region   string
	MaxBytes int64
}

// NewMinioStore connects to the endpoint and creates the bucket when it is
// missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &MinioStore{
		client:   client,
		bucket:   cfg.Bucket,
		baseURL:  fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket),
		maxBytes: cfg.MaxBytes,
	}, nil
}

func (s *MinioStore) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	name, err := objectName(fh, s.maxBytes)
	if err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, s.bucket, name, f, fh.Size,
		minio.PutObjectOptions{ContentType: fh.Header.Get("Content-Type")})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", name, err)
	}
	return s.baseURL + "/" + name, nil
}

func (s *MinioStore) Remove(ctx context.Context, p string) error {
	name, ok := strings.CutPrefix(p, s.baseURL+"/")
	if !ok || name == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove %s: %w", name, err)
	}
	return nil
}
