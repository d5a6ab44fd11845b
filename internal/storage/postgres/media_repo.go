package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/streamforge/vod-platform/internal/media/cursor"
	"github.com/streamforge/vod-platform/internal/media/models"
)

const mediaColumns = `id, original_filename, content_type, src_key, status, size, hls_key, error, created_at, updated_at`

type MediaRepo struct {
	db     *sqlx.DB
	outbox *OutboxRepo
}

func NewMediaRepo(db *sqlx.DB) *MediaRepo {
	return &MediaRepo{db: db, outbox: NewOutboxRepo(db)}
}

// CreateWithOwnership inserts the Media row and its MediaOwnership row in a
// single transaction. On any failure both inserts roll back; a Media row
// must never be visible without its ownership row.
func (r *MediaRepo) CreateWithOwnership(ctx context.Context, m *models.Media, o *models.MediaOwnership) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const insertMedia = `
		INSERT INTO media (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.ExecContext(ctx, insertMedia,
		m.ID, m.OriginalFilename, m.ContentType, m.SrcKey, m.Status,
		m.Size, m.HLSKey, m.Error, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		return fmt.Errorf("media insert: %w", err)
	}

	const insertOwnership = `
		INSERT INTO media_ownership
			(media_id, owner_id, status, title, description, duration_sec,
			 published_at, like_count, dislike_count, comment_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := tx.ExecContext(ctx, insertOwnership,
		o.MediaID, o.OwnerID, o.Status, o.Title, o.Description, o.DurationSec,
		o.PublishedAt, o.LikeCount, o.DislikeCount, o.CommentCount, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("ownership insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *MediaRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	const q = `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	var m models.Media
	if err := r.db.GetContext(ctx, &m, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("media get by id: %w", err)
	}
	return &m, nil
}

func (r *MediaRepo) GetOwnership(ctx context.Context, mediaID uuid.UUID) (*models.MediaOwnership, error) {
	const q = `
		SELECT id, media_id, owner_id, status, title, description, duration_sec,
		       published_at, like_count, dislike_count, comment_count, created_at
		FROM media_ownership
		WHERE media_id = $1
	`

	var o models.MediaOwnership
	if err := r.db.GetContext(ctx, &o, q, mediaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ownership get: %w", err)
	}
	return &o, nil
}

// Update persists the mutable Media fields, bumps updated_at, and appends
// the given events to the outbox in the same transaction.
func (r *MediaRepo) Update(ctx context.Context, m *models.Media, events ...models.DomainEvent) (*models.Media, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const q = `
		UPDATE media
		SET status = $2, size = $3, hls_key = $4, error = $5,
		    updated_at = GREATEST(updated_at, NOW())
		WHERE id = $1
		RETURNING ` + mediaColumns + `
	`
	var updated models.Media
	if err := tx.GetContext(ctx, &updated, q, m.ID, m.Status, m.Size, m.HLSKey, m.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("media update: %w", err)
	}

	for _, event := range events {
		if err := r.outbox.Add(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("add outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

func (r *MediaRepo) ListReady(ctx context.Context, limit int, after *cursor.Cursor) ([]models.Media, error) {
	var (
		rows []models.Media
		err  error
	)
	if after == nil {
		const q = `
			SELECT ` + mediaColumns + `
			FROM media
			WHERE status = 'READY' AND hls_key IS NOT NULL
			ORDER BY updated_at DESC, id DESC
			LIMIT $1
		`
		err = r.db.SelectContext(ctx, &rows, q, limit)
	} else {
		// Strictly before the cursor row in (updated_at DESC, id DESC)
		// order, so pages never overlap.
		const q = `
			SELECT ` + mediaColumns + `
			FROM media
			WHERE status = 'READY' AND hls_key IS NOT NULL
			  AND (updated_at < $1 OR (updated_at = $1 AND id < $2))
			ORDER BY updated_at DESC, id DESC
			LIMIT $3
		`
		err = r.db.SelectContext(ctx, &rows, q, after.UpdatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("media list ready: %w", err)
	}
	return rows, nil
}

func (r *MediaRepo) ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Media, error) {
	const q = `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE status = 'PROCESSING' AND updated_at < $1
		ORDER BY updated_at ASC
	`
	var rows []models.Media
	if err := r.db.SelectContext(ctx, &rows, q, olderThan); err != nil {
		return nil, fmt.Errorf("media list stuck: %w", err)
	}
	return rows, nil
}
