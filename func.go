// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"net"
)

// Func is a generic operation that accepts an input and returns a result.
//
// Func instances can be composed using [Compose2], [Compose3], etc. to build
// pipelines where the output of one stage flows into the input of the next.
//
// Ownership contract: when a Func receives a closeable resource as input it
// owns it. If it returns an error, it must have closed the resource before
// returning. A Func returning [Unit] (such as a [Handler]) consumes the
// resource and must close it on every path.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a function as a [Func] implementation.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}

// Handler is the capability "process one accepted connection".
//
// The handler takes ownership of the connection and must close it exactly
// once, whether it succeeds or fails. Decorators such as [*LoggingHandler]
// and [*CountingHandler] are themselves Handlers wrapping another Handler.
type Handler = Func[net.Conn, Unit]

// HandlerFunc adapts a function to the [Handler] interface.
type HandlerFunc func(ctx context.Context, conn net.Conn) error

var _ Handler = HandlerFunc(nil)

// Call implements [Handler].
func (f HandlerFunc) Call(ctx context.Context, conn net.Conn) (Unit, error) {
	return Unit{}, f(ctx, conn)
}
