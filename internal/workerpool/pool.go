// Package workerpool provides a long-lived bounded worker pool and an
// order-preserving concurrent map on top of it.
//
// A Pool owns a fixed set of goroutines fed by a queue of bounded depth, so
// callers that submit faster than the workers drain block in Submit instead of
// spawning more goroutines. Pools are meant to be created once per process and
// shared by every job; nesting is safe as long as tasks running on a pool never
// submit to that same pool.
package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a fixed-size set of workers consuming a bounded task queue.
type Pool struct {
	name    string
	workers int
	tasks   chan func()
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts a pool with the given number of workers and queue depth.
// Non-positive values fall back to one worker and a queue twice the worker count.
func New(name string, workers, queueDepth int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = workers * 2
	}
	p := &Pool{
		name:    name,
		workers: workers,
		tasks:   make(chan func(), queueDepth),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	slog.Debug("Worker pool started.", "pool", name, "workers", workers, "queueDepth", queueDepth)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.workers
}

// Name returns the pool's label used in logs.
func (p *Pool) Name() string {
	return p.name
}

// Submit queues task for execution. It blocks while the queue is full and
// returns early if ctx is done or the pool has been closed.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		return nil
	}
}

// Close stops accepting tasks, lets queued tasks finish and waits for the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	slog.Debug("Worker pool stopped.", "pool", p.name)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}
