package worker

import (
	"context"
	"sync"
)

type ProcessFunc[J any] func(ctx context.Context, job J) error

// ErrorFunc observes jobs whose processor returned an error.
type ErrorFunc[J any] func(job J, err error)

type WorkerPool[J any] struct {
	numWorkers int
	jobs       chan J
	processor  ProcessFunc[J]
	onError    ErrorFunc[J]
	wg         sync.WaitGroup
}

func NewWorkerPool[J any](numWorkers int, bufferSize int, processor ProcessFunc[J]) *WorkerPool[J] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[J]{
		numWorkers: numWorkers,
		jobs:       make(chan J, bufferSize),
		processor:  processor,
	}
}

// OnError registers a callback for failed jobs. Call before Start.
func (wp *WorkerPool[J]) OnError(fn ErrorFunc[J]) {
	wp.onError = fn
}

func (wp *WorkerPool[J]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

func (wp *WorkerPool[J]) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, job); err != nil && wp.onError != nil {
				wp.onError(job, err)
			}
		}
	}
}

func (wp *WorkerPool[J]) Submit(job J) {
	wp.jobs <- job
}

// Stop closes the queue and waits for the workers to drain it.
func (wp *WorkerPool[J]) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
}
