package models

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusUploading  Status = "UPLOADING"
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// Media is one row per uploaded asset. srcKey is assigned once at presign
// time and never changes; hlsKey is non-nil if and only if status is READY.
type Media struct {
	ID               uuid.UUID `db:"id"`
	OriginalFilename string    `db:"original_filename"`
	ContentType      string    `db:"content_type"`
	SrcKey           string    `db:"src_key"`
	Status           Status    `db:"status"`
	Size             *int64    `db:"size"`
	HLSKey           *string   `db:"hls_key"`
	Error            *string   `db:"error"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type OwnershipStatus string

const (
	OwnershipDraft      OwnershipStatus = "draft"
	OwnershipProcessing OwnershipStatus = "processing"
	OwnershipPublished  OwnershipStatus = "published"
	OwnershipRejected   OwnershipStatus = "rejected"
)

// MediaOwnership carries the editorial side of a Media row: who uploaded it
// and the publication-workflow status, which is independent from
// Media.Status. Exactly one row exists per Media, created in the same
// transaction.
type MediaOwnership struct {
	ID           int64           `db:"id"`
	MediaID      uuid.UUID       `db:"media_id"`
	OwnerID      string          `db:"owner_id"`
	Status       OwnershipStatus `db:"status"`
	Title        string          `db:"title"`
	Description  *string         `db:"description"`
	DurationSec  *int            `db:"duration_sec"`
	PublishedAt  *time.Time      `db:"published_at"`
	LikeCount    int             `db:"like_count"`
	DislikeCount int             `db:"dislike_count"`
	CommentCount int             `db:"comment_count"`
	CreatedAt    time.Time       `db:"created_at"`
}
