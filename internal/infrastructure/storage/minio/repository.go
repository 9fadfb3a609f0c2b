package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.CodeNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.CodeInvalidParam, "invalid request")
)

// ObjectStore reads and writes objects in the dataset bucket.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*UploadResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*ObjectMetadata, error)
}

// UploadResult describes a stored object.
type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// ObjectMetadata is the listing view of an object.
type ObjectMetadata struct {
	ObjectKey    string
	Size         int64
	ETag         string
	LastModified time.Time
}

type minioObjectStore struct {
	client *MinIOClient
	logger logging.Logger
}

// NewObjectStore returns an ObjectStore bound to client's bucket.
func NewObjectStore(client *MinIOClient, log logging.Logger) ObjectStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &minioObjectStore{client: client, logger: log}
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *minioObjectStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*UploadResult, error) {
	if key == "" || r == nil {
		return nil, ErrInvalidRequest.WithDetail("key and reader are required")
	}
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := api.PutObject(ctx, s.client.Bucket(), key, r, size, contentType)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "upload failed").WithDetail(key)
	}
	s.logger.Info("Object uploaded", logging.String("key", key), logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     s.client.Bucket(),
		ObjectKey:  key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (s *minioObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	rc, err := api.GetObject(ctx, s.client.Bucket(), key)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "download failed").WithDetail(key)
	}
	return rc, nil
}

func (s *minioObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	api, err := s.client.API()
	if err != nil {
		return false, err
	}
	if _, err := api.StatObject(ctx, s.client.Bucket(), key); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.CodeStorageError, "stat failed").WithDetail(key)
	}
	return true, nil
}

func (s *minioObjectStore) Delete(ctx context.Context, key string) error {
	api, err := s.client.API()
	if err != nil {
		return err
	}
	if err := api.RemoveObject(ctx, s.client.Bucket(), key); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "delete failed").WithDetail(key)
	}
	return nil
}

func (s *minioObjectStore) List(ctx context.Context, prefix string) ([]*ObjectMetadata, error) {
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	var out []*ObjectMetadata
	for obj := range api.ListObjects(ctx, s.client.Bucket(), prefix) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.CodeStorageError, "list failed")
		}
		out = append(out, &ObjectMetadata{
			ObjectKey:    obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}
