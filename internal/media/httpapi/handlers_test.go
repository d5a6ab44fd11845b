package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/vod-platform/internal/media/models"
	"github.com/streamforge/vod-platform/internal/media/repository"
	"github.com/streamforge/vod-platform/internal/media/service"
	"github.com/streamforge/vod-platform/internal/objectstore"
	"github.com/streamforge/vod-platform/internal/queue"
)

type stubStorage struct {
	headSize int64
}

func (s stubStorage) PresignPut(ctx context.Context, key, contentType string) (*objectstore.PresignedUpload, error) {
	return &objectstore.PresignedUpload{
		URL:       "http://storage.local/" + key + "?signed",
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		Key:       key,
		ExpiresIn: 900 * time.Second,
	}, nil
}

func (s stubStorage) Head(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	return objectstore.ObjectInfo{Exists: s.headSize > 0, Size: s.headSize}, nil
}

func (s stubStorage) Download(ctx context.Context, key, localPath string) error { return nil }

func (s stubStorage) UploadDir(ctx context.Context, prefixKey, localDir string) error { return nil }

type testEnv struct {
	repo   *repository.MemoryRepository
	jobs   *queue.MemoryQueue
	server http.Handler
}

func newTestEnv() *testEnv {
	repo := repository.NewMemoryRepository()
	jobs := queue.NewMemoryQueue(3, 0)
	svc := service.New(repo, stubStorage{headSize: 1000}, jobs,
		service.Config{PublicBaseURL: "http://cdn.local"}, zerolog.Nop())
	return &testEnv{repo: repo, jobs: jobs, server: NewRouter(New(svc))}
}

func (e *testEnv) do(t *testing.T, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv()
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPresign(t *testing.T) {
	env := newTestEnv()

	t.Run("missing owner header", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/uploads/presign", "",
			PresignRequest{OriginalFilename: "video.mp4", ContentType: "video/mp4"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected content type", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/uploads/presign", "owner-1",
			PresignRequest{OriginalFilename: "notes.txt", ContentType: "text/plain"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/uploads/presign", bytes.NewBufferString("{not json"))
		req.Header.Set(ownerHeader, "owner-1")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/uploads/presign", "owner-1",
			PresignRequest{OriginalFilename: "video.mp4", ContentType: "video/mp4"})
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decode[PresignResponse](t, rec)
		assert.NotEqual(t, uuid.Nil, resp.MediaID)
		assert.Equal(t, "PUT", resp.Method)
		assert.Equal(t, fmt.Sprintf("original/%s/video.mp4", resp.MediaID), resp.Key)
		assert.Equal(t, 900, resp.ExpiresIn)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/uploads/presign", "owner-1", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func presignAs(t *testing.T, env *testEnv, owner string) PresignResponse {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/uploads/presign", owner,
		PresignRequest{OriginalFilename: "video.mp4", ContentType: "video/mp4"})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[PresignResponse](t, rec)
}

func TestComplete(t *testing.T) {
	env := newTestEnv()
	pres := presignAs(t, env, "owner-1")

	t.Run("unknown media", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/uploads/complete", "owner-1",
			CompleteRequest{MediaID: uuid.New(), Key: "original/x/video.mp4"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong owner", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/uploads/complete", "intruder",
			CompleteRequest{MediaID: pres.MediaID, Key: pres.Key})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("success and idempotent repeat", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/uploads/complete", "owner-1",
			CompleteRequest{MediaID: pres.MediaID, Key: pres.Key})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[CompleteResponse](t, rec)
		assert.True(t, resp.OK)
		assert.Equal(t, string(models.StatusQueued), resp.Status)

		again := env.do(t, http.MethodPost, "/uploads/complete", "owner-1",
			CompleteRequest{MediaID: pres.MediaID, Key: pres.Key})
		require.Equal(t, http.StatusOK, again.Code)
		assert.Equal(t, 1, env.jobs.Len())
	})
}

func TestStatus(t *testing.T) {
	env := newTestEnv()
	pres := presignAs(t, env, "owner-1")

	rec := env.do(t, http.MethodGet, "/uploads/media/"+pres.MediaID.String()+"/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, pres.MediaID, resp.ID)
	assert.Equal(t, string(models.StatusUploading), resp.Status)

	t.Run("invalid id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/uploads/media/not-a-uuid/status", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func markReady(t *testing.T, env *testEnv, id uuid.UUID) {
	t.Helper()
	m, err := env.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	hlsKey := "hls/" + id.String() + "/index.m3u8"
	m.Status = models.StatusReady
	m.HLSKey = &hlsKey
	_, err = env.repo.Update(context.Background(), m)
	require.NoError(t, err)
}

func TestResolve(t *testing.T) {
	env := newTestEnv()
	pres := presignAs(t, env, "owner-1")

	t.Run("not ready", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/"+pres.MediaID.String(), "", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ready", func(t *testing.T) {
		markReady(t, env, pres.MediaID)
		rec := env.do(t, http.MethodGet, "/media/"+pres.MediaID.String(), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ResolveResponse](t, rec)
		assert.Equal(t, "http://cdn.local/hls/"+pres.MediaID.String()+"/index.m3u8", resp.StreamURL)
	})
}

func TestRecent(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 3; i++ {
		pres := presignAs(t, env, "owner-1")
		markReady(t, env, pres.MediaID)
	}

	t.Run("default page", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/recent", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[RecentResponse](t, rec)
		assert.Len(t, resp.Nodes, 3)
		assert.False(t, resp.PageInfo.HasNextPage)
	})

	t.Run("paged", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/recent?limit=2", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[RecentResponse](t, rec)
		assert.Len(t, resp.Nodes, 2)
		assert.True(t, resp.PageInfo.HasNextPage)
		require.NotNil(t, resp.PageInfo.EndCursor)

		rec = env.do(t, http.MethodGet, "/media/recent?limit=2&cursor="+url.QueryEscape(*resp.PageInfo.EndCursor), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rest := decode[RecentResponse](t, rec)
		assert.Len(t, rest.Nodes, 1)
		assert.False(t, rest.PageInfo.HasNextPage)
	})

	t.Run("bad cursor", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/recent?cursor=garbage", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limit out of range", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/recent?limit=51", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodGet, "/media/recent?limit=abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
