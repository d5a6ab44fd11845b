// Package cursor implements the opaque keyset-pagination cursor used by the
// recent-media query. A cursor encodes the (updatedAt, id) pair of the last
// row of the previous page as base64(JSON); it is reversible but not meant
// to be edited by hand.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/streamforge/vod-platform/internal/media/models"
)

type Cursor struct {
	UpdatedAt time.Time `json:"updatedAt"`
	ID        uuid.UUID `json:"id"`
}

func Encode(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(raw)
}

// Decode parses an opaque cursor. An empty string means "first page" and
// returns nil; anything non-empty that does not round-trip is a validation
// error, never a crash.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", models.ErrValidation)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", models.ErrValidation)
	}
	if c.ID == uuid.Nil || c.UpdatedAt.IsZero() {
		return nil, fmt.Errorf("%w: malformed cursor", models.ErrValidation)
	}
	return &c, nil
}
