package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/streamforge/vod-platform/internal/media/cursor"
	"github.com/streamforge/vod-platform/internal/media/models"
	"github.com/streamforge/vod-platform/internal/objectstore"
	"github.com/streamforge/vod-platform/internal/queue"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) CreateWithOwnership(ctx context.Context, media *models.Media, o *models.MediaOwnership) error {
	args := m.Called(ctx, media, o)
	return args.Error(0)
}

func (m *StoreMock) GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) GetOwnership(ctx context.Context, mediaID uuid.UUID) (*models.MediaOwnership, error) {
	args := m.Called(ctx, mediaID)
	if v := args.Get(0); v != nil {
		return v.(*models.MediaOwnership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) Update(ctx context.Context, media *models.Media, events ...models.DomainEvent) (*models.Media, error) {
	args := m.Called(ctx, media, events)
	if v := args.Get(0); v != nil {
		return v.(*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) ListReady(ctx context.Context, limit int, after *cursor.Cursor) ([]models.Media, error) {
	args := m.Called(ctx, limit, after)
	if v := args.Get(0); v != nil {
		return v.([]models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Media, error) {
	args := m.Called(ctx, olderThan)
	if v := args.Get(0); v != nil {
		return v.([]models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) PresignPut(ctx context.Context, key, contentType string) (*objectstore.PresignedUpload, error) {
	args := m.Called(ctx, key, contentType)
	if v := args.Get(0); v != nil {
		return v.(*objectstore.PresignedUpload), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StorageMock) Head(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(objectstore.ObjectInfo), args.Error(1)
}

func (m *StorageMock) Download(ctx context.Context, key, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}

func (m *StorageMock) UploadDir(ctx context.Context, prefixKey, localDir string) error {
	args := m.Called(ctx, prefixKey, localDir)
	return args.Error(0)
}

type QueueMock struct {
	mock.Mock
}

func (m *QueueMock) Enqueue(ctx context.Context, job queue.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
