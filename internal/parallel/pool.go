// Package parallel provides the worker pool used for CPU-bound per-frame work
// such as alpha trimming.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by ForEach after Close.
var ErrPoolClosed = errors.New("parallel: worker pool closed")

// WorkerPool runs indexed tasks on a fixed set of goroutines.
//
// Each worker owns a queue. Tasks are distributed round-robin and an idle
// worker steals from the other queues, which keeps the pool busy when
// individual tasks (large frames) take much longer than others.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int { return p.workers }

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			return
		case task := <-own:
			task()
			continue
		default:
		}

		if task := p.steal(id); task != nil {
			task()
			continue
		}

		select {
		case <-p.done:
			return
		case task := <-own:
			task()
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// ForEach calls fn(i) for every i in [0, n) on the pool and waits for all
// calls to return. It returns the first error reported by fn. Once an error
// occurs or ctx is done, tasks that have not started are skipped.
func (p *WorkerPool) ForEach(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if !p.running.Load() {
		return ErrPoolClosed
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		stop     atomic.Bool
	)
	fail := func(err error) {
		once.Do(func() { firstErr = err })
		stop.Store(true)
	}

	wg.Add(n)
	for i := range n {
		task := func() {
			defer wg.Done()
			if stop.Load() {
				return
			}
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			if err := fn(i); err != nil {
				fail(err)
			}
		}
		select {
		case p.queues[i%p.workers] <- task:
		case <-p.done:
			return ErrPoolClosed
		}
	}
	wg.Wait()
	return firstErr
}

// Close stops the workers. Tasks still queued are dropped; callers blocked
// in ForEach must not race with Close.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
