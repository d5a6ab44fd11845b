package domain

import (
	"fmt"

	"github.com/streamforge/vod-platform/internal/media/models"
)

// CanTransition reports whether the pipeline may move a Media row from one
// status to another. Transitions are forward-only, except that a queue retry
// re-enters PROCESSING from FAILED.
func CanTransition(from, to models.Status) bool {
	switch from {
	case models.StatusUploading:
		return to == models.StatusQueued
	case models.StatusQueued:
		return to == models.StatusProcessing
	case models.StatusProcessing:
		return to == models.StatusReady || to == models.StatusFailed
	case models.StatusFailed:
		// The one sanctioned backward transition: a retried job attempt.
		return to == models.StatusProcessing
	case models.StatusReady:
		return false
	default:
		return false
	}
}

func ValidateTransition(from, to models.Status) error {
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition: %s -> %s", from, to)
	}
	return nil
}
