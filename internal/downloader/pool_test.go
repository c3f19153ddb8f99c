package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"plurkbackup/pkg/logger"
)

func TestWorkerPoolRunBatch(t *testing.T) {
	pool := NewWorkerPool(3, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	var processed int32
	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{
			ID: fmt.Sprintf("post-%d", i),
			Run: func(ctx context.Context) error {
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&processed, 1)
				return nil
			},
		}
	}

	results := pool.RunBatch(context.Background(), jobs)
	assert.Len(t, results, 10)
	assert.Equal(t, int32(10), atomic.LoadInt32(&processed), "batch must be complete when RunBatch returns")
	for _, r := range results {
		assert.NoError(t, r.Error)
	}
}

func TestWorkerPoolPending(t *testing.T) {
	pool := NewWorkerPool(1, logger.NewNopLogger())
	defer pool.Stop()

	results := make(chan Result, 2)
	for i := 0; i < 2; i++ {
		job := Job{ID: fmt.Sprintf("post-%d", i), Run: func(ctx context.Context) error { return nil }}
		require.NoError(t, pool.Submit(context.Background(), job, results))
	}
	assert.Equal(t, 2, pool.Pending(), "nothing runs before Start")

	pool.Start()
	<-results
	<-results
	assert.Equal(t, 0, pool.Pending())
}

func TestWorkerPoolLogsQueuedBatch(t *testing.T) {
	tl := logger.NewTestLogger()
	pool := NewWorkerPool(2, tl)
	pool.Start()
	defer pool.Stop()

	jobs := []Job{
		{ID: "a", Run: func(ctx context.Context) error { return nil }},
		{ID: "b", Run: func(ctx context.Context) error { return nil }},
	}
	pool.RunBatch(context.Background(), jobs)
	assert.True(t, tl.HasMessage("Batch queued"))
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	var current, peak int32
	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprint(i), Run: func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}}
	}

	pool.RunBatch(context.Background(), jobs)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	tl := logger.NewTestLogger()
	pool := NewWorkerPool(1, tl)
	pool.Start()
	defer pool.Stop()

	results := pool.RunBatch(context.Background(), []Job{
		{ID: "bad", Run: func(ctx context.Context) error { panic("boom") }},
		{ID: "good", Run: func(ctx context.Context) error { return nil }},
	})
	require.Len(t, results, 2)

	byID := map[string]error{}
	for _, r := range results {
		byID[r.Job.ID] = r.Error
	}
	assert.ErrorContains(t, byID["bad"], "panicked: boom")
	assert.NoError(t, byID["good"])
	assert.True(t, tl.HasMessage("Job failed"))
}

func TestWorkerPoolReportsErrors(t *testing.T) {
	pool := NewWorkerPool(2, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	sentinel := errors.New("disk full")
	results := pool.RunBatch(context.Background(), []Job{
		{ID: "a", Run: func(ctx context.Context) error { return sentinel }},
	})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, sentinel)
}

func TestWorkerPoolSharedByConcurrentBatches(t *testing.T) {
	pool := NewWorkerPool(4, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for b := 0; b < 3; b++ {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			jobs := make([]Job, 5)
			for i := range jobs {
				jobs[i] = Job{ID: fmt.Sprintf("%d-%d", b, i), Run: func(ctx context.Context) error { return nil }}
			}
			results := pool.RunBatch(context.Background(), jobs)
			assert.Len(t, results, 5)
			for _, r := range results {
				assert.Equal(t, fmt.Sprint(b), r.Job.ID[:1], "results must not leak between batches")
			}
		}(b)
	}
	wg.Wait()
}

func TestWorkerPoolCancelledContext(t *testing.T) {
	pool := NewWorkerPool(1, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran int32
	results := pool.RunBatch(ctx, []Job{{ID: "x", Run: func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}}})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, logger.NewNopLogger())
	pool.Start()
	pool.Stop()
	pool.Stop()

	err := pool.Submit(context.Background(), Job{ID: "late"}, make(chan Result, 1))
	assert.Error(t, err)
}
