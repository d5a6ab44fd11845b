package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/streamforge/vod-platform/internal/objectstore"
)

// Transcoder is the engine-plus-storage capability the worker drives: given
// a media id and source key, produce and upload an HLS rendition and return
// the playlist key.
type Transcoder interface {
	Run(ctx context.Context, mediaID uuid.UUID, srcKey string) (hlsKey string, err error)
}

type PipelineConfig struct {
	// HLSPrefix is the key prefix for produced playlists, default "hls".
	HLSPrefix string
}

// Pipeline downloads the source into a scoped temporary workspace, invokes
// the engine, and uploads every produced file under {prefix}/{mediaId}/. The
// workspace is removed on every exit path.
type Pipeline struct {
	store  objectstore.Store
	engine Engine
	prefix string
	logger zerolog.Logger
}

func NewPipeline(store objectstore.Store, engine Engine, cfg PipelineConfig, logger zerolog.Logger) *Pipeline {
	prefix := cfg.HLSPrefix
	if prefix == "" {
		prefix = "hls"
	}
	return &Pipeline{
		store:  store,
		engine: engine,
		prefix: prefix,
		logger: logger.With().Str("component", "transcode_pipeline").Logger(),
	}
}

func (p *Pipeline) Run(ctx context.Context, mediaID uuid.UUID, srcKey string) (string, error) {
	work, err := os.MkdirTemp("", "hls-"+mediaID.String()+"-")
	if err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(work); rmErr != nil {
			p.logger.Warn().Err(rmErr).Str("workspace", work).Msg("workspace cleanup failed")
		}
	}()

	input := filepath.Join(work, "input")
	outDir := filepath.Join(work, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if err := p.store.Download(ctx, srcKey, input); err != nil {
		return "", fmt.Errorf("download source: %w", err)
	}
	if err := p.engine.Transcode(ctx, input, outDir); err != nil {
		return "", err
	}

	destPrefix := p.prefix + "/" + mediaID.String()
	if err := p.store.UploadDir(ctx, destPrefix, outDir); err != nil {
		return "", fmt.Errorf("upload rendition: %w", err)
	}

	hlsKey := destPrefix + "/index.m3u8"
	p.logger.Info().Str("media_id", mediaID.String()).Str("hls_key", hlsKey).Msg("rendition uploaded")
	return hlsKey, nil
}
