package httpapi

import (
	"time"

	"github.com/google/uuid"
)

type PresignRequest struct {
	OriginalFilename string `json:"originalFilename"`
	ContentType      string `json:"contentType"`
}

type PresignResponse struct {
	MediaID   uuid.UUID         `json:"mediaId"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Key       string            `json:"key"`
	ExpiresIn int               `json:"expiresIn"`
}

type CompleteRequest struct {
	MediaID uuid.UUID `json:"mediaId"`
	Key     string    `json:"key"`
	Size    *int64    `json:"size,omitempty"`
}

type CompleteResponse struct {
	OK     bool      `json:"ok"`
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type StatusResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
	HLSKey *string   `json:"hlsKey,omitempty"`
	Error  *string   `json:"error,omitempty"`
}

type ResolveResponse struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	StreamURL string    `json:"streamUrl"`
}

type RecentNode struct {
	ID               uuid.UUID `json:"id"`
	HLSKey           string    `json:"hlsKey"`
	OriginalFilename string    `json:"originalFilename"`
	ContentType      string    `json:"contentType"`
	Size             *int64    `json:"size,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type RecentPageInfo struct {
	EndCursor   *string `json:"endCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type RecentResponse struct {
	Nodes    []RecentNode   `json:"nodes"`
	PageInfo RecentPageInfo `json:"pageInfo"`
}
