// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"net"
	"sync"
)

// NewCancelWatchFunc returns a new [*CancelWatchFunc].
func NewCancelWatchFunc() *CancelWatchFunc {
	return &CancelWatchFunc{}
}

// CancelWatchFunc closes the connection as soon as the context is done.
//
// On the server side, compose it ahead of [*StreamPumpFunc] so that an
// interrupted handler (e.g., after [*BoundedPool.ShutdownNow]) releases its
// connection instead of blocking in Read forever: the close makes the
// pending Read fail and the pump returns. On the client side, it makes
// ^C via [signal.NotifyContext] interrupt blocking I/O.
//
// Closing the returned connection unregisters the watcher and closes the
// underlying connection, so no goroutine is leaked when the context is
// never done. The underlying connection is closed at most once: whichever
// of the watcher and Close runs first closes it, and a later Close
// returns [net.ErrClosed].
type CancelWatchFunc struct{}

var _ Func[net.Conn, net.Conn] = &CancelWatchFunc{}

// Call implements [Func].
func (op *CancelWatchFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	wrapped := &cancelWatchedConn{Conn: conn}
	wrapped.stop = context.AfterFunc(ctx, func() {
		wrapped.closeOnce()
	})
	return wrapped, nil
}

type cancelWatchedConn struct {
	net.Conn
	once sync.Once
	stop func() bool
}

// closeOnce closes the underlying connection unless already closed.
func (c *cancelWatchedConn) closeOnce() (err error) {
	err = net.ErrClosed
	c.once.Do(func() {
		err = c.Conn.Close()
	})
	return
}

// Close unregisters the context watcher and closes the underlying connection.
func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.closeOnce()
}

// CloseWrite shuts down the write side of the underlying connection.
func (c *cancelWatchedConn) CloseWrite() error {
	return closeWrite(c.Conn)
}
