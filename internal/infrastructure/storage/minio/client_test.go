package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/alchemist/pkg/errors"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if b := args.Get(0); b != nil {
		return b.([]minio.BucketInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockObjectAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectAPI) MakeBucket(ctx context.Context, bucket, region string) error {
	return m.Called(ctx, bucket, region).Error(0)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, key, r, size, contentType)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectAPI) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if rc := args.Get(0); rc != nil {
		return rc.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockObjectAPI) StatObject(ctx context.Context, bucket, key string) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockObjectAPI) RemoveObject(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func (m *MockObjectAPI) ListObjects(ctx context.Context, bucket, prefix string) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucket, prefix)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockObjectAPI
	client *MinIOClient
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.client = NewMinIOClientWithAPI(s.api, &MinIOConfig{Bucket: "datasets"}, logging.NewNopLogger())
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)
	s.Equal("us-east-1", cfg.Region)
	s.Equal("alchemist-datasets", cfg.Bucket)
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", s.ctx, "datasets").Return(true, nil)

	s.NoError(s.client.EnsureBucket(s.ctx))
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", s.ctx, "datasets").Return(false, nil)
	s.api.On("MakeBucket", s.ctx, "datasets", "us-east-1").Return(nil)

	s.NoError(s.client.EnsureBucket(s.ctx))
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestEnsureBucket_CheckFails() {
	s.api.On("BucketExists", s.ctx, "datasets").Return(false, errors.New("boom"))

	err := s.client.EnsureBucket(s.ctx)
	s.True(apperrors.IsCode(err, apperrors.CodeStorageError))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("ListBuckets", s.ctx).Return([]minio.BucketInfo{{Name: "datasets"}}, nil)
	s.api.On("BucketExists", s.ctx, "datasets").Return(true, nil)

	status, err := s.client.HealthCheck(s.ctx)
	s.NoError(err)
	s.True(status.Healthy)
	s.True(status.BucketExists)
}

func (s *ClientTestSuite) TestHealthCheck_MissingBucket() {
	s.api.On("ListBuckets", s.ctx).Return([]minio.BucketInfo{}, nil)
	s.api.On("BucketExists", s.ctx, "datasets").Return(false, nil)

	status, err := s.client.HealthCheck(s.ctx)
	s.NoError(err)
	s.False(status.Healthy)
	s.Contains(status.Error, "datasets")
}

func (s *ClientTestSuite) TestHealthCheck_Unreachable() {
	s.api.On("ListBuckets", s.ctx).Return(nil, errors.New("dial tcp: refused"))

	status, err := s.client.HealthCheck(s.ctx)
	s.Error(err)
	s.False(status.Healthy)
	s.True(apperrors.IsCode(err, apperrors.CodeServiceUnavailable))
}

func (s *ClientTestSuite) TestClose() {
	s.NoError(s.client.Close())
	_, err := s.client.API()
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
