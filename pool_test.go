// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundedPoolInvalidArguments(t *testing.T) {
	assert.Panics(t, func() { NewBoundedPool(0, 1) })
	assert.Panics(t, func() { NewBoundedPool(1, -1) })
}

// Submitted tasks run on the workers.
func TestBoundedPoolRunsTasks(t *testing.T) {
	pool := NewBoundedPool(2, 8)

	var ran atomic.Int64
	latch := NewLatch(8)
	for range 8 {
		err := pool.Submit(func(ctx context.Context) {
			ran.Add(1)
			latch.CountDown()
		})
		require.NoError(t, err)
	}

	waitLatch(t, latch)
	pool.Shutdown()
	assert.Equal(t, int64(8), ran.Load())
}

// Submit rejects work when every worker is busy and the queue is full.
func TestBoundedPoolSaturated(t *testing.T) {
	pool := NewBoundedPool(1, 1)

	started := NewLatch(1)
	release := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		started.CountDown()
		<-release
	}))
	waitLatch(t, started)

	var queuedRan atomic.Bool
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		queuedRan.Store(true)
	}))

	rejectedRan := false
	err := pool.Submit(func(ctx context.Context) {
		rejectedRan = true
	})
	require.ErrorIs(t, err, ErrPoolSaturated)

	close(release)
	pool.Shutdown()

	// Shutdown drains the queue; rejected tasks never run.
	assert.True(t, queuedRan.Load())
	assert.False(t, rejectedRan)
}

// Submit fails after shutdown.
func TestBoundedPoolClosed(t *testing.T) {
	pool := NewBoundedPool(1, 1)
	pool.Shutdown()

	err := pool.Submit(func(ctx context.Context) {})
	require.ErrorIs(t, err, ErrPoolClosed)

	// Shutting down twice is harmless.
	pool.Shutdown()
	pool.ShutdownNow()
}

// ShutdownNow cancels the context of running and queued tasks, which
// still run so that they can release their resources.
func TestBoundedPoolShutdownNow(t *testing.T) {
	pool := NewBoundedPool(1, 1)

	started := NewLatch(1)
	var runningCancelled atomic.Bool
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		started.CountDown()
		select {
		case <-ctx.Done():
			runningCancelled.Store(true)
		case <-time.After(5 * time.Second):
		}
	}))
	waitLatch(t, started)

	var queuedCancelled atomic.Bool
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		queuedCancelled.Store(ctx.Err() != nil)
	}))

	pool.ShutdownNow()

	assert.True(t, runningCancelled.Load())
	assert.True(t, queuedCancelled.Load())
}
