package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/streamforge/vod-platform/internal/media/cursor"
	"github.com/streamforge/vod-platform/internal/media/domain"
	"github.com/streamforge/vod-platform/internal/media/models"
	"github.com/streamforge/vod-platform/internal/media/repository"
	"github.com/streamforge/vod-platform/internal/objectstore"
	"github.com/streamforge/vod-platform/internal/queue"
	"github.com/streamforge/vod-platform/internal/transcode"
)

// Enqueuer is the slice of the job queue the request path needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

type Config struct {
	// PublicBaseURL prefixes hls keys when composing playback URLs.
	PublicBaseURL string
}

// Service owns the upload-to-publish pipeline invariants on the request
// path: presign, completion verification, the idempotent queue handoff, the
// public resolver and the recent-media read.
type Service struct {
	repo   repository.MediaRepository
	store  objectstore.Store
	jobs   Enqueuer
	cfg    Config
	logger zerolog.Logger

	clock func() time.Time
	idGen func() uuid.UUID
}

func New(repo repository.MediaRepository, store objectstore.Store, jobs Enqueuer, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger.With().Str("component", "media_service").Logger(),
		clock:  time.Now,
		idGen:  uuid.New,
	}
}

// mediaExtensions is the fallback allow-list consulted only when the client
// reports application/octet-stream (browsers that cannot detect a MIME type).
var mediaExtensions = map[string]struct{}{
	"mp4": {}, "m4v": {}, "m4a": {}, "mov": {}, "webm": {}, "mkv": {},
	"avi": {}, "wmv": {}, "flv": {}, "mpg": {}, "mpeg": {}, "ts": {},
	"mp3": {}, "aac": {}, "wav": {}, "flac": {}, "ogg": {}, "oga": {}, "opus": {}, "3gp": {},
}

var unsafeKeyChars = regexp.MustCompile(`[^\w.\-()\[\]{}@]`)

func ensureAllowed(contentType, filename string) error {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
		return nil
	}
	if ct == "application/octet-stream" {
		parts := strings.Split(filename, ".")
		ext := strings.ToLower(parts[len(parts)-1])
		if _, ok := mediaExtensions[ext]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: only audio/video files are allowed", models.ErrValidation)
}

// sanitizeFilename keeps storage keys free of path traversal and shell-odd
// characters.
func sanitizeFilename(name string) string {
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

type PresignResult struct {
	MediaID   uuid.UUID
	UploadURL string
	Method    string
	Headers   map[string]string
	Key       string
	ExpiresIn time.Duration
}

// CreatePresign validates the content type, creates the Media/MediaOwnership
// pair atomically (status UPLOADING), and hands back a presigned upload
// target. A presign failure after the commit leaves the rows in place: the
// upload simply never arrives.
func (s *Service) CreatePresign(ctx context.Context, originalFilename, contentType, ownerID string) (*PresignResult, error) {
	if originalFilename == "" || contentType == "" || ownerID == "" {
		return nil, fmt.Errorf("%w: filename, content type and owner are required", models.ErrValidation)
	}
	if err := ensureAllowed(contentType, originalFilename); err != nil {
		return nil, err
	}

	id := s.idGen()
	key := fmt.Sprintf("original/%s/%s", id, sanitizeFilename(originalFilename))
	now := s.clock()

	m := &models.Media{
		ID:               id,
		OriginalFilename: originalFilename,
		ContentType:      contentType,
		SrcKey:           key,
		Status:           models.StatusUploading,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	o := &models.MediaOwnership{
		MediaID:   id,
		OwnerID:   ownerID,
		Status:    models.OwnershipProcessing,
		Title:     originalFilename,
		CreatedAt: now,
	}
	if err := s.repo.CreateWithOwnership(ctx, m, o); err != nil {
		return nil, fmt.Errorf("create media pair: %w", err)
	}

	upload, err := s.store.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	s.logger.Info().Str("media_id", id.String()).Str("src_key", key).Msg("presign issued")
	return &PresignResult{
		MediaID:   id,
		UploadURL: upload.URL,
		Method:    upload.Method,
		Headers:   upload.Headers,
		Key:       upload.Key,
		ExpiresIn: upload.ExpiresIn,
	}, nil
}

type CompleteResult struct {
	OK     bool
	ID     uuid.UUID
	Status models.Status
}

// CompleteUpload verifies an upload-finished notification and performs the
// UPLOADING → QUEUED transition with exactly one transcode enqueue. Repeat
// notifications short-circuit: job identity equals the mediaId, so even a
// race past the status check cannot enqueue twice.
func (s *Service) CompleteUpload(ctx context.Context, mediaID uuid.UUID, key, ownerID string, sizeHint *int64) (*CompleteResult, error) {
	m, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if m.SrcKey != key {
		return nil, fmt.Errorf("%w: key does not match the presigned target", models.ErrValidation)
	}

	// Duplicate completion notification: the pipeline is already past
	// UPLOADING, so verifying or enqueueing again would double work.
	switch m.Status {
	case models.StatusQueued, models.StatusProcessing, models.StatusReady:
		return &CompleteResult{OK: true, ID: m.ID, Status: m.Status}, nil
	}

	o, err := s.repo.GetOwnership(ctx, mediaID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: media %s has no ownership row", models.ErrConsistency, mediaID)
		}
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, models.ErrUnauthorized
	}

	// The storage HEAD is authoritative; the client size is only a hint.
	info, err := s.store.Head(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("verify upload: %w", err)
	}
	if !info.Exists {
		return nil, fmt.Errorf("%w: object %s was not uploaded", models.ErrValidation, key)
	}
	if info.Size <= 0 {
		return nil, fmt.Errorf("%w: object %s is empty", models.ErrValidation, key)
	}
	if sizeHint != nil && *sizeHint != info.Size {
		s.logger.Warn().
			Str("media_id", mediaID.String()).
			Int64("reported", *sizeHint).
			Int64("actual", info.Size).
			Msg("client size hint disagrees with storage")
	}

	if err := domain.ValidateTransition(m.Status, models.StatusQueued); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConflict, err)
	}
	size := info.Size
	from := m.Status
	m.Size = &size
	m.Status = models.StatusQueued
	updated, err := s.repo.Update(ctx, m, models.NewMediaStatusChanged(m.ID, from, models.StatusQueued))
	if err != nil {
		return nil, fmt.Errorf("persist queued: %w", err)
	}

	payload, err := transcode.MarshalJob(transcode.JobPayload{MediaID: m.ID, SrcKey: m.SrcKey})
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := s.jobs.Enqueue(ctx, queue.Job{ID: m.ID.String(), Payload: payload}); err != nil {
		return nil, fmt.Errorf("enqueue transcode: %w", err)
	}

	s.logger.Info().Str("media_id", m.ID.String()).Int64("size", size).Msg("upload completed, transcode queued")
	return &CompleteResult{OK: true, ID: updated.ID, Status: updated.Status}, nil
}

type StatusResult struct {
	ID     uuid.UUID
	Status models.Status
	HLSKey *string
	Error  *string
}

// GetStatus serves the uploader's polling view of a media row.
func (s *Service) GetStatus(ctx context.Context, mediaID uuid.UUID) (*StatusResult, error) {
	m, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{ID: m.ID, Status: m.Status, HLSKey: m.HLSKey, Error: m.Error}, nil
}

type ResolveResult struct {
	ID        uuid.UUID
	Status    models.Status
	StreamURL string
}

// Resolve maps a READY media id to its public playback URL. In-progress and
// failed media are never exposed.
func (s *Service) Resolve(ctx context.Context, mediaID uuid.UUID) (*ResolveResult, error) {
	m, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusReady || m.HLSKey == nil {
		return nil, models.ErrNotReady
	}
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	if base == "" {
		// Server misconfiguration, not a client problem.
		return nil, errors.New("public base url is not configured")
	}
	return &ResolveResult{
		ID:        m.ID,
		Status:    m.Status,
		StreamURL: base + "/" + *m.HLSKey,
	}, nil
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 50
)

type RecentNode struct {
	ID               uuid.UUID
	HLSKey           string
	OriginalFilename string
	ContentType      string
	Size             *int64
	UpdatedAt        time.Time
}

type RecentPage struct {
	Nodes       []RecentNode
	EndCursor   string
	HasNextPage bool
}

// GetRecent serves the reverse-chronological keyset-paginated view of
// published media. The opaque cursor carries the (updatedAt, id) pair of the
// last returned row.
func (s *Service) GetRecent(ctx context.Context, limit int, cursorStr string) (*RecentPage, error) {
	if limit == 0 {
		limit = defaultRecentLimit
	}
	if limit < 1 || limit > maxRecentLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", models.ErrValidation, maxRecentLimit)
	}
	after, err := cursor.Decode(cursorStr)
	if err != nil {
		return nil, err
	}

	// Probe one past the page size to learn whether a next page exists.
	rows, err := s.repo.ListReady(ctx, limit+1, after)
	if err != nil {
		return nil, fmt.Errorf("list ready: %w", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}

	page := &RecentPage{Nodes: make([]RecentNode, 0, len(rows)), HasNextPage: hasNext}
	for _, m := range rows {
		page.Nodes = append(page.Nodes, RecentNode{
			ID:               m.ID,
			HLSKey:           *m.HLSKey,
			OriginalFilename: m.OriginalFilename,
			ContentType:      m.ContentType,
			Size:             m.Size,
			UpdatedAt:        m.UpdatedAt,
		})
	}
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		page.EndCursor = cursor.Encode(cursor.Cursor{UpdatedAt: last.UpdatedAt, ID: last.ID})
	}
	return page, nil
}

// StuckProcessing is the monitoring hook for rows left in PROCESSING with no
// live job (worker crash between checkout and completion). It reports; it
// never re-enqueues.
func (s *Service) StuckProcessing(ctx context.Context, olderThan time.Duration) ([]models.Media, error) {
	return s.repo.ListStuckProcessing(ctx, s.clock().Add(-olderThan))
}
