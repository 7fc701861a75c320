package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Map runs fn for every item on p with at most limit items in flight
// (limit <= 0 means the pool size) and returns the results in input order.
//
// The first error stops further dispatch. Items already running finish with
// the caller's ctx, their results are discarded, and Map returns that first
// error. Items that were queued but not yet started are skipped.
func Map[T, R any](ctx context.Context, p *Pool, limit int, items []T, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if limit <= 0 || limit > p.Size() {
		limit = p.Size()
	}
	if limit > len(items) {
		limit = len(items)
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		results  = make([]R, len(items))
		slots    = make(chan struct{}, limit)
		wg       sync.WaitGroup
		failOnce sync.Once
		failed   atomic.Bool
		firstErr error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			failed.Store(true)
			cancel()
		})
	}

	var dispatchErr error
	for i, item := range items {
		if failed.Load() {
			break
		}
		select {
		case <-dispatchCtx.Done():
		case slots <- struct{}{}:
		}
		if dispatchCtx.Err() != nil {
			dispatchErr = dispatchCtx.Err()
			break
		}

		wg.Add(1)
		err := p.Submit(dispatchCtx, func() {
			defer wg.Done()
			defer func() { <-slots }()
			if failed.Load() {
				return
			}
			r, err := call(ctx, fn, i, item)
			if err != nil {
				fail(err)
				return
			}
			results[i] = r
		})
		if err != nil {
			wg.Done()
			<-slots
			dispatchErr = err
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if dispatchErr != nil {
		return nil, fmt.Errorf("%s: dispatch stopped: %w", p.name, dispatchErr)
	}
	return results, nil
}

// call keeps a panicking task from taking a worker goroutine down with it.
func call[T, R any](ctx context.Context, fn func(context.Context, int, T) (R, error), i int, item T) (r R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %d panicked: %v", i, rec)
		}
	}()
	return fn(ctx, i, item)
}
