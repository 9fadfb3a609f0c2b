// Package dataset loads the thermodynamic and stoichiometric tables from CSV
// objects held in a directory or a MinIO bucket.
package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/turtacn/alchemist/internal/infrastructure/storage/minio"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Source opens dataset objects by key.
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// FileSource reads objects from a local directory.
type FileSource struct {
	Dir string
}

// NewFileSource returns a Source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir, filepath.Clean("/"+key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("dataset object not found").WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to open dataset object").WithDetail(key)
	}
	return f, nil
}

// MinIOSource reads objects from the dataset bucket.
type MinIOSource struct {
	store  minio.ObjectStore
	prefix string
}

// NewMinIOSource returns a Source backed by store. Keys are joined to prefix.
func NewMinIOSource(store minio.ObjectStore, prefix string) *MinIOSource {
	return &MinIOSource{store: store, prefix: prefix}
}

func (s *MinIOSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.store.Open(ctx, s.objectKey(key))
}

func (s *MinIOSource) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return filepath.ToSlash(filepath.Join(s.prefix, key))
}
