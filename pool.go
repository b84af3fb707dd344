// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"errors"
	"sync"

	"github.com/bassosimone/runtimex"
	"golang.org/x/sync/errgroup"
)

// WorkerPool runs submitted tasks on worker goroutines.
//
// Submit must not block: it returns nil when the task has been accepted
// and a non-nil error (typically [ErrPoolSaturated] or [ErrPoolClosed])
// when it has been rejected. A rejected task is never run.
//
// Tasks receive a context that the pool may cancel to interrupt them.
type WorkerPool interface {
	Submit(task func(ctx context.Context)) error
}

// ErrPoolSaturated indicates that all workers are busy and the queue is full.
var ErrPoolSaturated = errors.New("worker pool saturated")

// ErrPoolClosed indicates that the pool is shutting down.
var ErrPoolClosed = errors.New("worker pool closed")

// NewBoundedPool returns a [*BoundedPool] with the given number of workers
// and a task queue of the given capacity. The workers start immediately.
//
// This function panics if workers is not positive or queueSize is negative.
func NewBoundedPool(workers, queueSize int) *BoundedPool {
	runtimex.Assert(workers > 0)
	runtimex.Assert(queueSize >= 0)
	ctx, cancel := context.WithCancel(context.Background())
	pool := &BoundedPool{
		cancel: cancel,
		ctx:    ctx,
		queue:  make(chan func(context.Context), queueSize),
	}
	for range workers {
		pool.group.Go(pool.work)
	}
	return pool
}

// BoundedPool is a fixed-size [WorkerPool] with a bounded FIFO queue.
//
// With a zero-capacity queue, Submit succeeds only when a worker is idle
// and already waiting for work.
type BoundedPool struct {
	cancel context.CancelFunc
	closed bool
	ctx    context.Context
	group  errgroup.Group
	mu     sync.RWMutex
	queue  chan func(context.Context)
}

var _ WorkerPool = &BoundedPool{}

// Submit implements [WorkerPool].
func (p *BoundedPool) Submit(task func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrPoolSaturated
	}
}

// Shutdown stops accepting tasks, lets the workers run every task already
// queued, and waits for them to return.
func (p *BoundedPool) Shutdown() {
	p.closeQueue()
	p.group.Wait()
	p.cancel()
}

// ShutdownNow is like [*BoundedPool.Shutdown] but first cancels the context
// passed to running and queued tasks, so that they are interrupted. Tasks
// still run, which gives them a chance to release what they own.
func (p *BoundedPool) ShutdownNow() {
	p.cancel()
	p.closeQueue()
	p.group.Wait()
}

func (p *BoundedPool) closeQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

func (p *BoundedPool) work() error {
	for task := range p.queue {
		task(p.ctx)
	}
	return nil
}
