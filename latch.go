// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"sync"

	"github.com/bassosimone/runtimex"
)

// Latch is a countdown synchronization signal.
//
// A Latch created with [NewLatch] fires once its count reaches zero: the
// channel returned by [*Latch.Done] is closed and every waiter observes
// it. Counting down a fired latch is a no-op. A latch with count one is
// the single-fire event used for readiness signaling.
//
// The zero value is not valid; use [NewLatch].
type Latch struct {
	count int
	done  chan struct{}
	mu    sync.Mutex
}

// NewLatch returns a new [*Latch] firing after count calls to CountDown.
//
// This function panics if count is not positive.
func NewLatch(count int) *Latch {
	runtimex.Assert(count > 0)
	return &Latch{count: count, done: make(chan struct{})}
}

// CountDown decrements the count and fires the latch when it reaches zero.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count <= 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.done)
	}
}

// Done returns a channel closed when the latch fires.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Fired returns whether the latch has fired.
func (l *Latch) Fired() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
