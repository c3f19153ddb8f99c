package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"plurkbackup/pkg/logger"
)

// Job is one unit of work, typically processing a single post
type Job struct {
	ID  string
	Run func(ctx context.Context) error
}

// Result represents the outcome of a job
type Result struct {
	Job      Job
	Error    error
	Duration time.Duration
}

type submission struct {
	ctx     context.Context
	job     Job
	results chan<- Result
}

// WorkerPool is a fixed set of workers shared by every caller in the
// process. Each submission carries its own result channel, so concurrent
// batches never see each other's results.
type WorkerPool struct {
	numWorkers int
	jobQueue   chan submission
	wg         sync.WaitGroup
	logger     logger.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(numWorkers int, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers: numWorkers,
		jobQueue:   make(chan submission, numWorkers*2),
		logger:     log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started || wp.closed {
		return
	}
	wp.started = true

	logger.LogComponentStart(wp.logger, "worker_pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop lets queued jobs finish, then shuts the workers down
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	logger.LogComponentStop(wp.logger, "worker_pool", "stopped")
}

// Submit queues a job; its Result is delivered on results
func (wp *WorkerPool) Submit(ctx context.Context, job Job, results chan<- Result) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return fmt.Errorf("worker pool is shut down")
	}

	select {
	case wp.jobQueue <- submission{ctx: ctx, job: job, results: results}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunBatch runs every job on the pool and waits until all of them have
// finished. Results are returned in completion order.
func (wp *WorkerPool) RunBatch(ctx context.Context, jobs []Job) []Result {
	results := make(chan Result, len(jobs))
	out := make([]Result, 0, len(jobs))

	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(ctx, job, results); err != nil {
			out = append(out, Result{Job: job, Error: err})
			continue
		}
		submitted++
	}
	wp.logger.DebugWithFields("Batch queued", map[string]interface{}{
		"jobs":    submitted,
		"pending": wp.Pending(),
	})

	for i := 0; i < submitted; i++ {
		out = append(out, <-results)
	}
	return out
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for s := range wp.jobQueue {
		s.results <- wp.processJob(s, id)
	}
}

// processJob runs one job, turning a panic into an error so a bad post
// cannot take the worker down
func (wp *WorkerPool) processJob(s submission, workerID int) (result Result) {
	start := time.Now()
	result.Job = s.job

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("job %s panicked: %v", s.job.ID, r)
		}
		result.Duration = time.Since(start)

		if result.Error != nil {
			wp.logger.WithError(result.Error).WarnWithFields("Job failed", map[string]interface{}{
				"worker_id": workerID,
				"job":       s.job.ID,
				"duration":  result.Duration,
			})
		}
	}()

	if err := s.ctx.Err(); err != nil {
		result.Error = err
		return result
	}
	result.Error = s.job.Run(s.ctx)
	return result
}

// Size returns the number of workers
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// Pending returns the number of submitted jobs no worker has picked up yet
func (wp *WorkerPool) Pending() int {
	return len(wp.jobQueue)
}
