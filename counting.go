// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"net"
	"sync/atomic"
)

// NewCountingHandler returns a new [*CountingHandler] wrapping next.
func NewCountingHandler(next Handler) *CountingHandler {
	return &CountingHandler{Next: next}
}

// CountingHandler is a [Handler] decorator counting the connections it
// observes before delegating to Next.
//
// When it runs on the accept goroutine the count follows accept order.
// When it runs behind a [*WorkerPoolHandler] it follows the order in
// which handling starts.
type CountingHandler struct {
	// Next is the wrapped [Handler].
	Next Handler

	count atomic.Int64
}

var _ Handler = &CountingHandler{}

// Call implements [Handler].
func (op *CountingHandler) Call(ctx context.Context, conn net.Conn) (Unit, error) {
	op.count.Add(1)
	return op.Next.Call(ctx, conn)
}

// Count returns the number of connections observed so far.
//
// The count only grows; there is no way to reset it.
func (op *CountingHandler) Count() int64 {
	return op.count.Load()
}
