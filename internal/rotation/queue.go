// Package rotation schedules timed page cycling per device: a state-machine
// controller driven by one-shot timers, a single-flight render queue, and a
// manager that routes host operations to registered devices.
package rotation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minRenderSpacing is the floor between consecutive job starts. A request
// arriving sooner waits out the remainder; it is never dropped.
const minRenderSpacing = 250 * time.Millisecond

// Job is a unit of display work. Jobs for one device run strictly in
// enqueue order, never concurrently.
type Job struct {
	ID  string
	Run func(ctx context.Context) error
}

// Queue is a single-worker FIFO executor. Every render request for a
// device goes through its queue so buffer writes never interleave.
type Queue struct {
	jobs   chan queuedJob
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

type queuedJob struct {
	job    Job
	result chan error
}

// NewQueue starts the worker goroutine. Close releases it.
func NewQueue(depth int, logger *zap.Logger) *Queue {
	if depth <= 0 {
		depth = 16
	}
	q := &Queue{
		jobs:   make(chan queuedJob, depth),
		logger: logger,
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()

	var lastStart time.Time
	for {
		select {
		case <-q.done:
			return
		case qj := <-q.jobs:
			if wait := minRenderSpacing - time.Since(lastStart); wait > 0 {
				time.Sleep(wait)
			}
			lastStart = time.Now()

			start := time.Now()
			err := qj.job.Run(context.Background())
			if err != nil {
				q.logger.Warn("Render job failed",
					zap.String("job_id", qj.job.ID),
					zap.Duration("elapsed", time.Since(start)),
					zap.Error(err))
			} else {
				q.logger.Debug("Render job done",
					zap.String("job_id", qj.job.ID),
					zap.Duration("elapsed", time.Since(start)))
			}
			if qj.result != nil {
				qj.result <- err
			}
		}
	}
}

// Submit enqueues work and returns without waiting for it.
func (q *Queue) Submit(run func(ctx context.Context) error) string {
	id := uuid.New().String()
	select {
	case q.jobs <- queuedJob{job: Job{ID: id, Run: run}}:
	case <-q.done:
	}
	return id
}

// SubmitWait enqueues work and blocks until it has executed, returning its
// error. ctx aborts the wait, not the job.
func (q *Queue) SubmitWait(ctx context.Context, run func(ctx context.Context) error) error {
	result := make(chan error, 1)
	id := uuid.New().String()
	select {
	case q.jobs <- queuedJob{job: Job{ID: id, Run: run}, result: result}:
	case <-q.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after the job it is currently running. Queued but
// unstarted jobs are discarded.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.wg.Wait()
}
