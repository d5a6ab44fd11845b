package objectstore

import (
	"path/filepath"
	"strings"
)

// ContentTypeForFile maps an HLS artifact filename to the content type
// stored alongside it, falling back to octet-stream for anything unknown.
func ContentTypeForFile(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4":
		return "video/mp4"
	case ".aac":
		return "audio/aac"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
