package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate applies the schema idempotently at startup. The API process owns
// the schema; the worker connects with the schema already in place.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS media (
			id UUID PRIMARY KEY,
			original_filename VARCHAR(255) NOT NULL,
			content_type VARCHAR(128) NOT NULL,
			src_key VARCHAR(512) NOT NULL UNIQUE,
			status VARCHAR(16) NOT NULL,
			size BIGINT,
			hls_key VARCHAR(512),
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_media_recent
			ON media (updated_at DESC, id DESC) WHERE status = 'READY'`,
		`CREATE TABLE IF NOT EXISTS media_ownership (
			id BIGSERIAL PRIMARY KEY,
			media_id UUID NOT NULL UNIQUE REFERENCES media (id),
			owner_id VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'processing',
			title VARCHAR(200) NOT NULL,
			description TEXT,
			duration_sec INT,
			published_at TIMESTAMPTZ,
			like_count INT NOT NULL DEFAULT 0,
			dislike_count INT NOT NULL DEFAULT 0,
			comment_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ownership_status_pub
			ON media_ownership (status, published_at)`,
		`CREATE TABLE IF NOT EXISTS outbox (
			id BIGSERIAL PRIMARY KEY,
			event_id UUID NOT NULL,
			event_type VARCHAR(64) NOT NULL,
			aggregate_id UUID NOT NULL,
			payload JSONB NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_pending
			ON outbox (id) WHERE processed_at IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
