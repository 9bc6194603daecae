package mocks

import (
	"context"
	"time"

	"objectvault/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) Object(bucket, name string) storage.ObjectFile {
	args := m.Called(bucket, name)
	return args.Get(0).(storage.ObjectFile)
}

func (m *MockProvider) SignedURL(ctx context.Context, bucket, name string, req storage.SignedURLRequest) (string, error) {
	args := m.Called(ctx, bucket, name, req)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) ParsePath(path string) (string, string, error) {
	args := m.Called(path)
	return args.String(0), args.String(1), args.Error(2)
}

type MockObjectFile struct {
	mock.Mock
}

func (m *MockObjectFile) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectFile) Download(ctx context.Context, sink storage.DownloadSink, cacheTTL time.Duration) error {
	args := m.Called(ctx, sink, cacheTTL)
	return args.Error(0)
}

func (m *MockObjectFile) Metadata(ctx context.Context) (storage.ObjectMetadata, error) {
	args := m.Called(ctx)
	return args.Get(0).(storage.ObjectMetadata), args.Error(1)
}

func (m *MockObjectFile) SetMetadata(ctx context.Context, patch map[string]string) error {
	args := m.Called(ctx, patch)
	return args.Error(0)
}

func (m *MockObjectFile) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockObjectFile) Path() string {
	args := m.Called()
	return args.String(0)
}
