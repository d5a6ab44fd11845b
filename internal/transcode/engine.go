package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Engine turns a local media file into an HLS VOD playlist plus segments in
// outputDir. A failure carries a human-readable description.
type Engine interface {
	Transcode(ctx context.Context, inputPath, outputDir string) error
}

type FFmpegConfig struct {
	// BinaryPath defaults to "ffmpeg" resolved on PATH.
	BinaryPath string
	// SegmentSeconds is the HLS segment duration, default 6.
	SegmentSeconds int
}

// FFmpegEngine shells out to ffmpeg producing a single-tier HLS VOD rendition.
type FFmpegEngine struct {
	bin     string
	segment int
	logger  zerolog.Logger
}

func NewFFmpegEngine(cfg FFmpegConfig, logger zerolog.Logger) *FFmpegEngine {
	bin := cfg.BinaryPath
	if bin == "" {
		bin = "ffmpeg"
	}
	segment := cfg.SegmentSeconds
	if segment <= 0 {
		segment = 6
	}
	return &FFmpegEngine{
		bin:     bin,
		segment: segment,
		logger:  logger.With().Str("component", "ffmpeg").Logger(),
	}
}

func (e *FFmpegEngine) Transcode(ctx context.Context, inputPath, outputDir string) error {
	playlist := filepath.Join(outputDir, "index.m3u8")
	args := []string{
		"-hide_banner", "-y",
		"-i", inputPath,
		"-preset", "veryfast",
		"-movflags", "+faststart",
		"-g", "48",
		"-keyint_min", "48",
		"-sc_threshold", "0",
		"-hls_playlist_type", "vod",
		"-hls_time", strconv.Itoa(e.segment),
		"-hls_list_size", "0",
		playlist,
	}

	cmd := exec.CommandContext(ctx, e.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Info().Str("command", e.bin+" "+strings.Join(args, " ")).Msg("ffmpeg start")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 512))
	}
	return nil
}

// tail keeps error messages bounded; ffmpeg puts the cause at the end of
// its stderr stream.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
