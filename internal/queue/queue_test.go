package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	base := 5 * time.Second
	assert.Equal(t, 5*time.Second, Backoff(base, 1))
	assert.Equal(t, 10*time.Second, Backoff(base, 2))
	assert.Equal(t, 20*time.Second, Backoff(base, 3))
	assert.Equal(t, time.Duration(0), Backoff(0, 3))
}

func TestFatal(t *testing.T) {
	assert.Nil(t, Fatal(nil))

	base := errors.New("corrupted payload")
	err := Fatal(base)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, base.Error(), err.Error())

	// Wrapping keeps the fatal mark visible.
	wrapped := fmt.Errorf("handle job: %w", err)
	assert.True(t, IsFatal(wrapped))

	assert.False(t, IsFatal(base))
	assert.False(t, IsFatal(nil))
}

func TestMemoryQueue_DedupByJobID(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(3, 0)

	require.NoError(t, q.Enqueue(ctx, Job{ID: "job-1", Payload: []byte("a")}))
	require.NoError(t, q.Enqueue(ctx, Job{ID: "job-1", Payload: []byte("b")}))
	require.NoError(t, q.Enqueue(ctx, Job{ID: "job-2", Payload: []byte("c")}))

	assert.Equal(t, 2, q.Len())
}

func TestMemoryQueue_ProcessAll(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(3, 0)
	require.NoError(t, q.Enqueue(ctx, Job{ID: "ok", Payload: []byte("x")}))
	require.NoError(t, q.Enqueue(ctx, Job{ID: "bad", Payload: []byte("y")}))

	attempts := map[string]int{}
	q.ProcessAll(ctx, func(ctx context.Context, job Job) error {
		attempts[job.ID]++
		assert.Equal(t, attempts[job.ID], job.Attempt)
		if job.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	assert.Equal(t, 1, attempts["ok"])
	assert.Equal(t, 3, attempts["bad"], "retryable failures consume the full attempt budget")

	rec, found := q.Record("ok")
	require.True(t, found)
	assert.Equal(t, StateCompleted, rec.State)

	rec, found = q.Record("bad")
	require.True(t, found)
	assert.Equal(t, StateFailed, rec.State)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, "boom", rec.Error)

	assert.Equal(t, 0, q.Len())
}

func TestMemoryQueue_FatalSkipsRetries(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(5, 0)
	require.NoError(t, q.Enqueue(ctx, Job{ID: "forged", Payload: []byte("x")}))

	calls := 0
	q.ProcessAll(ctx, func(ctx context.Context, job Job) error {
		calls++
		return Fatal(errors.New("job references unknown media"))
	})

	assert.Equal(t, 1, calls)
	rec, found := q.Record("forged")
	require.True(t, found)
	assert.Equal(t, StateFailed, rec.State)
	assert.Equal(t, 1, rec.Attempts)
}

func TestMemoryQueue_Consume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewMemoryQueue(3, 0)
	done := make(chan string, 1)
	go func() {
		_ = q.Consume(ctx, func(ctx context.Context, job Job) error {
			done <- job.ID
			return nil
		})
	}()

	require.NoError(t, q.Enqueue(ctx, Job{ID: "live", Payload: []byte("x")}))

	select {
	case id := <-done:
		assert.Equal(t, "live", id)
	case <-ctx.Done():
		t.Fatal("job was not delivered before the deadline")
	}
}
