package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

// ObjectAPI is the subset of the MinIO SDK used by alchemist. GetObject
// returns a plain io.ReadCloser so the SDK's *minio.Object can be swapped in
// tests.
type ObjectAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, key string) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix string) <-chan minio.ObjectInfo
}

// MinIOConfig holds connection settings for the dataset bucket.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
}

// MinIOClient owns the SDK handle and the configured bucket.
type MinIOClient struct {
	api    ObjectAPI
	config *MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// ErrMinIOClientClosed is returned by operations after Close.
var ErrMinIOClientClosed = errors.New(errors.CodeStorageError, "minio client is closed")

// NewMinIOClient connects, verifies reachability and ensures the bucket.
func NewMinIOClient(cfg *MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	applyDefaults(cfg)

	sdk, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := NewMinIOClientWithAPI(&sdkAPI{c: sdk}, cfg, log)
	if _, err := c.api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeServiceUnavailable, "failed to connect to minio")
	}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewMinIOClientWithAPI wraps an existing ObjectAPI without any network call.
func NewMinIOClientWithAPI(api ObjectAPI, cfg *MinIOConfig, log logging.Logger) *MinIOClient {
	applyDefaults(cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MinIOClient{api: api, config: cfg, logger: log}
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "alchemist-datasets"
	}
}

// EnsureBucket creates the configured bucket when missing.
func (c *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.config.Bucket, c.config.Region); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to create bucket").WithDetail(c.config.Bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// Bucket returns the configured bucket name.
func (c *MinIOClient) Bucket() string { return c.config.Bucket }

// API returns the underlying ObjectAPI, or an error once closed.
func (c *MinIOClient) API() (ObjectAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrMinIOClientClosed
	}
	return c.api, nil
}

// Close marks the client closed. The SDK holds no persistent connection.
func (c *MinIOClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// HealthStatus reports reachability of MinIO and the bucket.
type HealthStatus struct {
	Healthy      bool
	Latency      time.Duration
	BucketExists bool
	Error        string
}

// HealthCheck lists buckets and checks the configured one.
func (c *MinIOClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	status := &HealthStatus{Healthy: err == nil, Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
		return status, errors.Wrap(err, errors.CodeServiceUnavailable, "minio unreachable")
	}
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	status.BucketExists = exists && err == nil
	if !status.BucketExists {
		status.Healthy = false
		status.Error = "bucket " + c.config.Bucket + " missing"
	}
	return status, nil
}

// sdkAPI adapts *minio.Client to ObjectAPI.
type sdkAPI struct {
	c *minio.Client
}

func (s *sdkAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return s.c.ListBuckets(ctx)
}

func (s *sdkAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.c.BucketExists(ctx, bucket)
}

func (s *sdkAPI) MakeBucket(ctx context.Context, bucket, region string) error {
	return s.c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func (s *sdkAPI) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (minio.UploadInfo, error) {
	return s.c.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
}

// GetObject stats the object first so a missing key fails here instead of on
// the first Read.
func (s *sdkAPI) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return obj, nil
}

func (s *sdkAPI) StatObject(ctx context.Context, bucket, key string) (minio.ObjectInfo, error) {
	return s.c.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
}

func (s *sdkAPI) RemoveObject(ctx context.Context, bucket, key string) error {
	return s.c.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func (s *sdkAPI) ListObjects(ctx context.Context, bucket, prefix string) <-chan minio.ObjectInfo {
	return s.c.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
}
