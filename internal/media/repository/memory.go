package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamforge/vod-platform/internal/media/cursor"
	"github.com/streamforge/vod-platform/internal/media/models"
)

// MemoryRepository is a process-local MediaRepository used by tests and
// local development. Events passed to Update are recorded instead of being
// written to an outbox table.
type MemoryRepository struct {
	mu        sync.RWMutex
	media     map[uuid.UUID]*models.Media
	ownership map[uuid.UUID]*models.MediaOwnership
	events    []models.DomainEvent

	// Clock is swappable so tests can control updated_at ordering.
	Clock func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		media:     make(map[uuid.UUID]*models.Media),
		ownership: make(map[uuid.UUID]*models.MediaOwnership),
		Clock:     time.Now,
	}
}

func (r *MemoryRepository) CreateWithOwnership(ctx context.Context, m *models.Media, o *models.MediaOwnership) error {
	if m == nil || o == nil || m.ID == uuid.Nil || o.MediaID != m.ID {
		return models.ErrValidation
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[m.ID]; exists {
		return models.ErrConflict
	}

	// Defensive copies so callers cannot mutate stored rows.
	mc := *m
	oc := *o
	r.media[m.ID] = &mc
	r.ownership[m.ID] = &oc
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	if id == uuid.Nil {
		return nil, models.ErrValidation
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.media[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) GetOwnership(ctx context.Context, mediaID uuid.UUID) (*models.MediaOwnership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.ownership[mediaID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) Update(ctx context.Context, m *models.Media, events ...models.DomainEvent) (*models.Media, error) {
	if m == nil || m.ID == uuid.Nil {
		return nil, models.ErrValidation
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.media[m.ID]
	if !ok {
		return nil, models.ErrNotFound
	}

	stored.Status = m.Status
	stored.Size = m.Size
	stored.HLSKey = m.HLSKey
	stored.Error = m.Error
	now := r.Clock()
	if now.After(stored.UpdatedAt) {
		stored.UpdatedAt = now
	}
	r.events = append(r.events, events...)

	cp := *stored
	return &cp, nil
}

func (r *MemoryRepository) ListReady(ctx context.Context, limit int, after *cursor.Cursor) ([]models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]models.Media, 0)
	for _, m := range r.media {
		if m.Status != models.StatusReady || m.HLSKey == nil {
			continue
		}
		if after != nil && !strictlyBefore(m, after) {
			continue
		}
		rows = append(rows, *m)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
		}
		return bytes.Compare(rows[i].ID[:], rows[j].ID[:]) > 0
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *MemoryRepository) ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []models.Media
	for _, m := range r.media {
		if m.Status == models.StatusProcessing && m.UpdatedAt.Before(olderThan) {
			rows = append(rows, *m)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.Before(rows[j].UpdatedAt) })
	return rows, nil
}

// Events returns the domain events recorded by Update, oldest first.
func (r *MemoryRepository) Events() []models.DomainEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.DomainEvent(nil), r.events...)
}

// strictlyBefore reports whether m sorts strictly after the cursor position
// in (updated_at DESC, id DESC) order, i.e. belongs to a later page.
func strictlyBefore(m *models.Media, c *cursor.Cursor) bool {
	if m.UpdatedAt.Before(c.UpdatedAt) {
		return true
	}
	if m.UpdatedAt.Equal(c.UpdatedAt) {
		return bytes.Compare(m.ID[:], c.ID[:]) < 0
	}
	return false
}
