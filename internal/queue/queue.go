// Package queue is the durable job queue capability: at-least-once delivery
// with per-job identity, bounded attempts and exponential backoff. Job
// identity doubles as the idempotency key, so a second enqueue of the same
// ID is a no-op at the queue layer.
package queue

import (
	"context"
	"errors"
	"time"
)

// Job is one unit of work. ID is the idempotency key; for transcode jobs it
// is the mediaId.
type Job struct {
	ID      string
	Payload []byte
	Attempt int
}

// Handler processes a delivered job. A plain error triggers the retry policy;
// wrap with Fatal to abandon the job immediately (corrupted or forged jobs).
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error

	// Consume blocks delivering jobs to h until ctx is cancelled.
	Consume(ctx context.Context, h Handler) error
}

// Job lifecycle states retained for inspection after the job leaves the
// pending list.
const (
	StateQueued    = "queued"
	StateActive    = "active"
	StateDelayed   = "delayed"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

type JobRecord struct {
	ID       string
	State    string
	Attempts int
	Error    string
}

type fatalError struct{ err error }

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

// Fatal marks err as non-retryable: the job is recorded as failed and the
// retry budget does not apply.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

func IsFatal(err error) bool {
	var f fatalError
	return errors.As(err, &f)
}

// Backoff returns the delay before the given retry attempt (1-based),
// doubling from base each time.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
