package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PresignTTL bounds the lifetime of upload URLs. Defaults to 15 minutes.
	PresignTTL time.Duration
}

// MinioStore implements Store against MinIO or any S3-compatible endpoint.
type MinioStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("objectstore: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("objectstore: bucket is required")
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: create client: %w", err)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, ttl: ttl}, nil
}

func (s *MinioStore) PresignPut(ctx context.Context, key, contentType string) (*PresignedUpload, error) {
	target, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}
	return &PresignedUpload{
		URL:       target.String(),
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		Key:       key,
		ExpiresIn: s.ttl,
	}, nil
}

func (s *MinioStore) Head(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return ObjectInfo{}, nil
		}
		return ObjectInfo{}, fmt.Errorf("head %s: %w", key, err)
	}
	return ObjectInfo{Exists: true, Size: info.Size}, nil
}

func (s *MinioStore) Download(ctx context.Context, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local dir: %w", err)
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get object %s: %w", key, err)
	}
	defer object.Close()

	local, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}
	defer local.Close()

	if _, err := io.Copy(local, object); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) UploadDir(ctx context.Context, prefixKey, localDir string) error {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		localPath := filepath.Join(localDir, entry.Name())
		key := prefixKey + "/" + entry.Name()
		_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
			ContentType: ContentTypeForFile(entry.Name()),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	return nil
}
