package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mitchellh/mapstructure"
)

// MinioSettings are the settings accepted by the minio provider.
type MinioSettings struct {
	Endpoint    string `mapstructure:"endpoint"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	Bucket      string `mapstructure:"bucket"`
	Secure      *bool  `mapstructure:"secure"`
	Region      string `mapstructure:"region"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// MinioProvider implements the Provider interface for MinIO/S3 storage
type MinioProvider struct {
	client      *minio.Client
	bucket      string
	prefix      string
	contentType string

	checkOnce sync.Once
	checkErr  error
}

// NewMinioProvider creates a new MinioProvider
func NewMinioProvider() *MinioProvider {
	return &MinioProvider{}
}

// Name returns the provider name
func (m *MinioProvider) Name() string {
	return "minio"
}

// Configure sets up the MinIO client with the given settings.
func (m *MinioProvider) Configure(settings map[string]any) error {
	var s MinioSettings
	if err := mapstructure.WeakDecode(settings, &s); err != nil {
		return fmt.Errorf("minio: invalid settings: %w", err)
	}

	switch {
	case s.Endpoint == "":
		return fmt.Errorf("minio: endpoint is required")
	case s.AccessKey == "":
		return fmt.Errorf("minio: access_key is required")
	case s.SecretKey == "":
		return fmt.Errorf("minio: secret_key is required")
	case s.Bucket == "":
		return fmt.Errorf("minio: bucket is required")
	}

	endpoint, secure, err := parseEndpoint(s.Endpoint, s.Secure)
	if err != nil {
		return err
	}

	region := s.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to create client: %w", err)
	}

	m.client = client
	m.bucket = s.Bucket
	m.prefix = s.Prefix
	m.contentType = s.ContentType
	return nil
}

// parseEndpoint strips an http:// or https:// scheme. A scheme decides
// security on its own; without one the secure setting applies, defaulting to
// true.
func parseEndpoint(raw string, secure *bool) (string, bool, error) {
	useTLS := true
	if secure != nil {
		useTLS = *secure
	}

	endpoint := raw
	switch {
	case strings.HasPrefix(raw, "https://"):
		endpoint, useTLS = strings.TrimPrefix(raw, "https://"), true
	case strings.HasPrefix(raw, "http://"):
		endpoint, useTLS = strings.TrimPrefix(raw, "http://"), false
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	if endpoint == "" || strings.Contains(endpoint, "/") {
		return "", false, fmt.Errorf("minio: invalid endpoint URL %q", raw)
	}
	return endpoint, useTLS, nil
}

// objectName joins the configured prefix with remotePath.
func (m *MinioProvider) objectName(remotePath string) string {
	if m.prefix == "" {
		return remotePath
	}
	return path.Join(m.prefix, remotePath)
}

// checkBucket verifies the bucket once per provider.
func (m *MinioProvider) checkBucket(ctx context.Context) error {
	m.checkOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.checkErr = fmt.Errorf("minio: failed to check bucket existence: %w", err)
			return
		}
		if !exists {
			m.checkErr = fmt.Errorf("minio: bucket %s does not exist", m.bucket)
		}
	})
	return m.checkErr
}

// Upload uploads content from reader to MinIO
func (m *MinioProvider) Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error {
	if m.client == nil {
		return fmt.Errorf("minio: provider not configured")
	}
	if err := m.checkBucket(ctx); err != nil {
		return err
	}

	objectName := m.objectName(remotePath)
	opts := minio.PutObjectOptions{ContentType: m.contentType}
	if _, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, opts); err != nil {
		return fmt.Errorf("minio: failed to upload to %s: %w", objectName, err)
	}
	return nil
}
