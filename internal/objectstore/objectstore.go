// Package objectstore is the storage capability consumed by the pipeline:
// presigned direct uploads, authoritative existence/size checks, source
// downloads for the worker, and bulk upload of transcoded artifacts.
package objectstore

import (
	"context"
	"time"
)

// PresignedUpload is everything a client needs to PUT the original object
// directly to storage without routing bytes through the API.
type PresignedUpload struct {
	URL       string
	Method    string
	Headers   map[string]string
	Key       string
	ExpiresIn time.Duration
}

// ObjectInfo is the result of a HEAD check. Size is meaningful only when
// Exists is true.
type ObjectInfo struct {
	Exists bool
	Size   int64
}

type Store interface {
	PresignPut(ctx context.Context, key, contentType string) (*PresignedUpload, error)
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Download(ctx context.Context, key, localPath string) error

	// UploadDir uploads every regular file in localDir under prefixKey,
	// inferring the content type from the file extension.
	UploadDir(ctx context.Context, prefixKey, localDir string) error
}
