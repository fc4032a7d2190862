package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrJobQueueIsFull = errors.New("job queue is full")
	ErrJobQueueClosed = errors.New("job queue is closed")
)

// Job is a unit of work executed by the queue workers.
type Job func(ctx context.Context)

// JobQueueService runs background jobs on a fixed pool of workers. The
// verification poller uses it so gateway polls never block request handlers.
type JobQueueService struct {
	jobs    chan Job       // queued jobs
	resume  chan struct{}  // closed to release workers after a pause
	paused  int32          // 1 while paused
	wg      sync.WaitGroup // tracks worker goroutines
	mu      sync.Mutex     // guards resume channel swaps
	closing int32          // 1 once the queue is shut down
}

// NewJobQueueService creates the queue with the given capacity and starts
// the workers.
func NewJobQueueService(ctx context.Context, capacity, workers int) *JobQueueService {
	service := &JobQueueService{
		jobs:   make(chan Job, capacity),
		resume: make(chan struct{}),
	}
	service.start(ctx, workers)

	return service
}

func (jqs *JobQueueService) start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		jqs.wg.Add(1)

		go func(workerID int) {
			defer jqs.wg.Done()

			for {
				select {
				case job, ok := <-jqs.jobs:
					if !ok {
						return
					}

					// Copy the channel before checking the flag so a
					// concurrent Resume cannot swap it in between.
					jqs.mu.Lock()
					resume := jqs.resume
					jqs.mu.Unlock()

					if atomic.LoadInt32(&jqs.paused) == 1 {
						<-resume
					}

					job(ctx)
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}
}

// Enqueue adds a job to the queue. It fails when the queue is full or
// closed.
func (jqs *JobQueueService) Enqueue(job Job) error {
	if atomic.LoadInt32(&jqs.closing) == 1 {
		return ErrJobQueueClosed
	}

	select {
	case jqs.jobs <- job:
		return nil
	default:
		return ErrJobQueueIsFull
	}
}

// Pause stops workers from picking up new jobs.
func (jqs *JobQueueService) Pause() {
	atomic.CompareAndSwapInt32(&jqs.paused, 0, 1)
}

// Resume releases the workers blocked by Pause.
func (jqs *JobQueueService) Resume() {
	if atomic.CompareAndSwapInt32(&jqs.paused, 1, 0) {
		jqs.mu.Lock()
		defer jqs.mu.Unlock()
		// Release blocked workers and arm a fresh channel for the next pause.
		close(jqs.resume)
		jqs.resume = make(chan struct{})
	}
}

// PauseAndResume pauses job execution for the given duration.
func (jqs *JobQueueService) PauseAndResume(delay time.Duration) {
	jqs.Pause()
	time.AfterFunc(delay, func() {
		jqs.Resume()
	})
}

// Shutdown closes the queue and waits for the workers to drain.
func (jqs *JobQueueService) Shutdown() {
	if atomic.CompareAndSwapInt32(&jqs.closing, 0, 1) {
		close(jqs.jobs)
		jqs.wg.Wait()
	}
}
