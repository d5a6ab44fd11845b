package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/streamforge/vod-platform/internal/media/cursor"
	"github.com/streamforge/vod-platform/internal/media/models"
)

// MediaRepository is the durable record store for Media and MediaOwnership.
//
// CreateWithOwnership inserts both rows in one transaction; a Media row must
// never exist without its ownership row. Update persists the mutable fields
// of a Media row, bumps updated_at, and appends the given domain events to
// the outbox atomically with the row write.
type MediaRepository interface {
	CreateWithOwnership(ctx context.Context, m *models.Media, o *models.MediaOwnership) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	GetOwnership(ctx context.Context, mediaID uuid.UUID) (*models.MediaOwnership, error)
	Update(ctx context.Context, m *models.Media, events ...models.DomainEvent) (*models.Media, error)

	// ListReady returns READY rows with a non-null hls_key in
	// (updated_at DESC, id DESC) order, strictly after the cursor when one
	// is given. It fetches at most limit rows; callers probe with limit+1.
	ListReady(ctx context.Context, limit int, after *cursor.Cursor) ([]models.Media, error)

	// ListStuckProcessing is a monitoring hook for rows left in PROCESSING
	// with no live job (e.g. after a worker crash). It never re-enqueues.
	ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Media, error)
}
