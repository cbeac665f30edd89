// Package parallel runs batches of independent tasks, such as per-tile
// kernel passes, across a fixed set of worker goroutines.
//
// Each worker owns a queue and steals from the others when its own runs
// dry, which keeps the workers busy when task costs are uneven (edge tiles
// are smaller than interior ones).
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by ExecuteAll when the pool has been closed.
var ErrClosed = errors.New("parallel: pool closed")

// WorkerPool executes batches of tasks on a fixed number of goroutines.
//
// WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int

	// queues holds one buffered task channel per worker. A worker pulls
	// from its own queue first and steals from the others when empty.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to exit.
	wg sync.WaitGroup

	// running indicates whether the pool accepts work.
	running atomic.Bool

	// submitMu holds ExecuteAll's submission window on the read side.
	// Close takes the write side before closing done, so a task can never
	// land in a queue after its worker has drained it and exited.
	submitMu sync.RWMutex
}

// NewWorkerPool creates a pool with the given number of workers and starts
// them. If workers is zero or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// A few queued tasks per worker hides submission latency without
	// holding the whole batch in channel buffers.
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the loop run by each goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]

	for {
		select {
		case <-p.done:
			p.drain(own)
			return

		case task := <-own:
			if task != nil {
				task()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			// Nothing to steal; block on the own queue.
			select {
			case <-p.done:
				p.drain(own)
				return
			case task := <-own:
				if task != nil {
					task()
				}
			}
		}
	}
}

// drain executes whatever is still queued so queued tasks are never lost
// on shutdown.
func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			if task != nil {
				task()
			}
		default:
			return
		}
	}
}

// steal takes one task from another worker's queue, or returns nil.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
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

// ExecuteAll distributes tasks round-robin across the workers and blocks
// until every submitted task has finished.
//
// If ctx is canceled before ExecuteAll returns, remaining tasks are not
// started and ctx.Err() is returned, even when the cancellation lands
// after the last submission; already-submitted tasks are still waited
// for, so no task touches shared state after ExecuteAll returns.
// ExecuteAll on a closed pool runs nothing and returns ErrClosed.
func (p *WorkerPool) ExecuteAll(ctx context.Context, tasks []func()) error {
	if len(tasks) == 0 {
		return nil
	}

	p.submitMu.RLock()
	if !p.running.Load() {
		p.submitMu.RUnlock()
		return ErrClosed
	}

	var pending sync.WaitGroup
	pending.Add(len(tasks))

	canceled := false
	for i, fn := range tasks {
		// ctx.Err is checked before each select: with both the queue send
		// and ctx.Done ready, select would pick at random.
		if canceled || ctx.Err() != nil {
			canceled = true
			pending.Done()
			continue
		}

		wrapped := func() {
			defer pending.Done()
			fn()
		}

		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-ctx.Done():
			canceled = true
			pending.Done()
		}
	}
	p.submitMu.RUnlock()

	pending.Wait()

	// A cancellation landing after the submission loop still voids the
	// batch: tasks observe ctx themselves and may have skipped their work.
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Close stops the pool: no new work is accepted, queued tasks finish, and
// all workers exit before Close returns. Close waits for in-flight
// ExecuteAll submissions, so a submitted task always has a live worker.
// Safe to call more than once.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	p.submitMu.Lock()
	close(p.done)
	p.submitMu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}
