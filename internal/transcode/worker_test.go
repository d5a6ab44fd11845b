package transcode

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/vod-platform/internal/media/models"
	"github.com/streamforge/vod-platform/internal/media/repository"
	"github.com/streamforge/vod-platform/internal/queue"
)

type stubTranscoder struct {
	calls int
	err   error
	keyFn func(mediaID uuid.UUID) string
}

func (s *stubTranscoder) Run(ctx context.Context, mediaID uuid.UUID, srcKey string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.keyFn != nil {
		return s.keyFn(mediaID), nil
	}
	return "hls/" + mediaID.String() + "/index.m3u8", nil
}

func seedQueued(t *testing.T, repo *repository.MemoryRepository) *models.Media {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	m := &models.Media{
		ID:               id,
		OriginalFilename: "video.mp4",
		ContentType:      "video/mp4",
		SrcKey:           "original/" + id.String() + "/video.mp4",
		Status:           models.StatusUploading,
	}
	require.NoError(t, repo.CreateWithOwnership(ctx, m, &models.MediaOwnership{MediaID: id, OwnerID: "owner-1"}))
	m.Status = models.StatusQueued
	_, err := repo.Update(ctx, m)
	require.NoError(t, err)
	return m
}

func jobFor(t *testing.T, m *models.Media) queue.Job {
	t.Helper()
	payload, err := MarshalJob(JobPayload{MediaID: m.ID, SrcKey: m.SrcKey})
	require.NoError(t, err)
	return queue.Job{ID: m.ID.String(), Payload: payload, Attempt: 1}
}

func TestHandle_Success(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	m := seedQueued(t, repo)
	tr := &stubTranscoder{}
	w := NewWorker(repo, tr, zerolog.Nop())

	require.NoError(t, w.Handle(ctx, jobFor(t, m)))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)
	require.NotNil(t, got.HLSKey)
	assert.Equal(t, "hls/"+m.ID.String()+"/index.m3u8", *got.HLSKey)
	assert.Nil(t, got.Error)
	assert.Equal(t, 1, tr.calls)
}

func TestHandle_FailurePersistsAndReRaises(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	m := seedQueued(t, repo)
	boom := errors.New("ffmpeg exited with code 1")
	w := NewWorker(repo, &stubTranscoder{err: boom}, zerolog.Nop())

	err := w.Handle(ctx, jobFor(t, m))
	require.ErrorIs(t, err, boom)
	assert.False(t, queue.IsFatal(err))

	got, repoErr := repo.GetByID(ctx, m.ID)
	require.NoError(t, repoErr)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.NotEmpty(t, *got.Error)
	assert.Nil(t, got.HLSKey)
}

func TestHandle_RetryBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	m := seedQueued(t, repo)
	tr := &stubTranscoder{err: errors.New("ffmpeg exited with code 1")}
	w := NewWorker(repo, tr, zerolog.Nop())

	q := queue.NewMemoryQueue(3, 0)
	require.NoError(t, q.Enqueue(ctx, queue.Job{ID: m.ID.String(), Payload: jobFor(t, m).Payload}))
	q.ProcessAll(ctx, w.Handle)

	assert.Equal(t, 3, tr.calls)

	rec, ok := q.Record(m.ID.String())
	require.True(t, ok)
	assert.Equal(t, queue.StateFailed, rec.State)
	assert.Equal(t, 3, rec.Attempts)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
}

func TestHandle_RetryAfterFailureSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	m := seedQueued(t, repo)

	// First attempt fails, second goes through: FAILED → PROCESSING → READY.
	tr := &stubTranscoder{err: errors.New("transient storage error")}
	w := NewWorker(repo, tr, zerolog.Nop())
	require.Error(t, w.Handle(ctx, jobFor(t, m)))

	tr.err = nil
	require.NoError(t, w.Handle(ctx, jobFor(t, m)))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)
	assert.Nil(t, got.Error)
}

func TestHandle_ReadyShortCircuits(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	m := seedQueued(t, repo)
	tr := &stubTranscoder{}
	w := NewWorker(repo, tr, zerolog.Nop())

	require.NoError(t, w.Handle(ctx, jobFor(t, m)))
	require.Equal(t, 1, tr.calls)

	// Redelivery of the same job after the work is published.
	require.NoError(t, w.Handle(ctx, jobFor(t, m)))
	assert.Equal(t, 1, tr.calls, "redelivered job must not re-transcode")
}

func TestHandle_FatalJobs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	m := seedQueued(t, repo)
	w := NewWorker(repo, &stubTranscoder{}, zerolog.Nop())

	t.Run("malformed payload", func(t *testing.T) {
		err := w.Handle(ctx, queue.Job{ID: "x", Payload: []byte("not json")})
		require.Error(t, err)
		assert.True(t, queue.IsFatal(err))
	})

	t.Run("unknown media", func(t *testing.T) {
		ghost := &models.Media{ID: uuid.New(), SrcKey: "original/ghost/video.mp4"}
		err := w.Handle(ctx, jobFor(t, ghost))
		require.Error(t, err)
		assert.True(t, queue.IsFatal(err))
		assert.ErrorIs(t, err, models.ErrConsistency)
	})

	t.Run("srcKey mismatch", func(t *testing.T) {
		forged := *m
		forged.SrcKey = "original/" + m.ID.String() + "/other.mp4"
		err := w.Handle(ctx, jobFor(t, &forged))
		require.Error(t, err)
		assert.True(t, queue.IsFatal(err))
		assert.ErrorIs(t, err, models.ErrConsistency)
	})
}
