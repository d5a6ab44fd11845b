package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is a process-local Queue with the same identity and retry
// semantics as the Redis implementation. It backs tests and local runs.
type MemoryQueue struct {
	mu      sync.Mutex
	pending []Job
	seen    map[string]struct{}
	records map[string]*JobRecord

	maxAttempts int
	backoffBase time.Duration

	wake chan struct{}
}

func NewMemoryQueue(maxAttempts int, backoffBase time.Duration) *MemoryQueue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &MemoryQueue{
		seen:        make(map[string]struct{}),
		records:     make(map[string]*JobRecord),
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		wake:        make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.seen[job.ID]; dup {
		return nil
	}
	q.seen[job.ID] = struct{}{}
	q.records[job.ID] = &JobRecord{ID: job.ID, State: StateQueued}
	q.pending = append(q.pending, job)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Consume delivers jobs one at a time until ctx is cancelled. Retries are
// re-queued after the backoff delay has elapsed.
func (q *MemoryQueue) Consume(ctx context.Context, h Handler) error {
	for {
		job, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.wake:
				continue
			case <-time.After(50 * time.Millisecond):
				continue
			}
		}
		q.deliver(ctx, h, job)
	}
}

// ProcessAll drains the queue synchronously, applying the retry policy with
// no backoff delay. Intended for tests.
func (q *MemoryQueue) ProcessAll(ctx context.Context, h Handler) {
	base := q.backoffBase
	q.backoffBase = 0
	defer func() { q.backoffBase = base }()

	for {
		job, ok := q.pop()
		if !ok {
			return
		}
		q.deliver(ctx, h, job)
	}
}

func (q *MemoryQueue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Job{}, false
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job, true
}

func (q *MemoryQueue) deliver(ctx context.Context, h Handler, job Job) {
	job.Attempt++
	q.setRecord(job.ID, StateActive, job.Attempt, "")

	err := h(ctx, job)
	switch {
	case err == nil:
		q.setRecord(job.ID, StateCompleted, job.Attempt, "")
	case IsFatal(err):
		q.setRecord(job.ID, StateFailed, job.Attempt, err.Error())
	case job.Attempt >= q.maxAttempts:
		q.setRecord(job.ID, StateFailed, job.Attempt, err.Error())
	default:
		q.setRecord(job.ID, StateDelayed, job.Attempt, err.Error())
		if delay := Backoff(q.backoffBase, job.Attempt); delay > 0 {
			time.Sleep(delay)
		}
		q.mu.Lock()
		q.pending = append(q.pending, job)
		q.mu.Unlock()
	}
}

func (q *MemoryQueue) setRecord(id, state string, attempts int, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		rec = &JobRecord{ID: id}
		q.records[id] = rec
	}
	rec.State = state
	rec.Attempts = attempts
	rec.Error = errMsg
}

func (q *MemoryQueue) Record(id string) (JobRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		return JobRecord{}, false
	}
	return *rec, true
}

// Len reports the number of jobs waiting for delivery.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
