package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aihub/campus-companion/internal/config"
	apperrors "github.com/aihub/campus-companion/internal/errors"
)

const minioScheme = "minio://"

// ArtifactStore 读取分类模型、关键词规则等只读制品。
// 本地路径直接打开，minio://bucket/key 从对象存储拉取。
type ArtifactStore struct {
	client *minio.Client
}

// NewArtifactStore 未配置 endpoint 时只支持本地路径
func NewArtifactStore(cfg config.StorageConfig) (*ArtifactStore, error) {
	if cfg.Endpoint == "" {
		return &ArtifactStore{}, nil
	}

	// minio.New 不接受协议前缀
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration, "failed to create minio client").WithCause(err)
	}
	return &ArtifactStore{client: client}, nil
}

// ParseSource 拆分 minio://bucket/key，本地路径 remote 为 false
func ParseSource(source string) (bucket, key string, remote bool, err error) {
	if !strings.HasPrefix(source, minioScheme) {
		return "", "", false, nil
	}
	rest := strings.TrimPrefix(source, minioScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", true, apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration,
			fmt.Sprintf("invalid object source %q, expected minio://bucket/key", source))
	}
	return bucket, key, true, nil
}

// Open 打开制品，调用方负责关闭
func (s *ArtifactStore) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	bucket, key, remote, err := ParseSource(source)
	if err != nil {
		return nil, err
	}

	if !remote {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", source, err)
		}
		return f, nil
	}

	if s == nil || s.client == nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrCodeConfiguration,
			fmt.Sprintf("%s requires storage.endpoint", source))
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	// GetObject 延迟请求，Stat 触发一次读取以便尽早暴露 NoSuchKey
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to stat object %s/%s: %w", bucket, key, err)
	}
	return obj, nil
}
