// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"net"

	"github.com/bassosimone/runtimex"
)

// NewReadySignalHandler returns a new [*ReadySignalHandler].
func NewReadySignalHandler(latch *Latch, next Handler) *ReadySignalHandler {
	runtimex.Assert(latch != nil)
	return &ReadySignalHandler{Latch: latch, Next: next}
}

// ReadySignalHandler is a [Handler] decorator counting down Latch before
// delegating to Next.
//
// Waiting on the latch lets an observer synchronize with "N connections
// have reached this point of the chain" without sleeping.
type ReadySignalHandler struct {
	// Latch is counted down once per connection.
	Latch *Latch

	// Next is the wrapped [Handler].
	Next Handler
}

var _ Handler = &ReadySignalHandler{}

// Call implements [Handler].
func (op *ReadySignalHandler) Call(ctx context.Context, conn net.Conn) (Unit, error) {
	op.Latch.CountDown()
	return op.Next.Call(ctx, conn)
}
