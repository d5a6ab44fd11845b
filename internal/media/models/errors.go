package models

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("invalid argument")
	ErrUnauthorized = errors.New("owner mismatch")
	// ErrConsistency marks a broken invariant (Media without its ownership
	// row, srcKey mismatch inside a job). Never repaired silently.
	ErrConsistency = errors.New("data consistency violation")
	// ErrNotReady is returned when a caller asks for playback of media that
	// has not reached READY.
	ErrNotReady = errors.New("media is not ready")
)
