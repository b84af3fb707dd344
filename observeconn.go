//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/measurexlite/conn.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/conn.go
//

package nopaccept

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewObserveConnFunc returns a new [*ObserveConnFunc].
//
// The cfg argument contains the common configuration for nopaccept operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewObserveConnFunc(cfg *Config, logger SLogger) *ObserveConnFunc {
	return &ObserveConnFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// ObserveConnFunc wraps a [net.Conn] so that reads, writes and deadline
// changes are logged at Debug level and close is logged at Info level.
//
// Compose it ahead of [*StreamPumpFunc] to trace the bytes flowing
// through an accepted connection, or ahead of a client stage to trace
// what the client sends and receives.
//
// The wrapper closes the underlying connection at most once; subsequent
// calls to Close return [net.ErrClosed].
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ObserveConnFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewObserveConnFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewObserveConnFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewObserveConnFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[net.Conn, net.Conn] = &ObserveConnFunc{}

// Call implements [Func].
func (op *ObserveConnFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	observed := &observedConn{
		Conn: conn,
		endpoint: []any{
			slog.String("localAddr", safeconn.LocalAddr(conn)),
			slog.String("protocol", safeconn.Network(conn)),
			slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		},
		op: op,
	}
	return observed, nil
}

type observedConn struct {
	net.Conn
	closeonce sync.Once
	endpoint  []any
	op        *ObserveConnFunc
}

// attrs returns the endpoint attributes followed by extra.
func (c *observedConn) attrs(extra ...any) []any {
	out := make([]any, 0, len(c.endpoint)+len(extra))
	out = append(out, c.endpoint...)
	return append(out, extra...)
}

// Close implements [net.Conn].
func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		t0 := c.op.TimeNow()
		c.op.Logger.Info("closeStart", c.attrs(slog.Time("t", t0))...)
		err = c.Conn.Close()
		c.op.Logger.Info("closeDone", c.attrs(
			slog.Any("err", err),
			slog.String("errClass", c.op.ErrClassifier.Classify(err)),
			slog.Time("t0", t0),
			slog.Time("t", c.op.TimeNow()),
		)...)
	})
	return
}

// CloseWrite shuts down the write side of the underlying connection.
//
// It returns [errors.ErrUnsupported] when the underlying connection
// does not support half-closing.
func (c *observedConn) CloseWrite() error {
	t0 := c.op.TimeNow()
	err := closeWrite(c.Conn)
	c.op.Logger.Info("closeWriteDone", c.attrs(
		slog.Any("err", err),
		slog.String("errClass", c.op.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", c.op.TimeNow()),
	)...)
	return err
}

// Read implements [net.Conn].
func (c *observedConn) Read(buf []byte) (int, error) {
	return c.observeIO("read", buf, c.Conn.Read)
}

// Write implements [net.Conn].
func (c *observedConn) Write(data []byte) (int, error) {
	return c.observeIO("write", data, c.Conn.Write)
}

func (c *observedConn) observeIO(name string, buf []byte, fx func([]byte) (int, error)) (int, error) {
	t0 := c.op.TimeNow()
	c.op.Logger.Debug(name+"Start", c.attrs(
		slog.Int("ioBufferSize", len(buf)),
		slog.Time("t", t0),
	)...)

	count, err := fx(buf)

	c.op.Logger.Debug(name+"Done", c.attrs(
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.op.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", c.op.TimeNow()),
	)...)
	return count, err
}

// SetDeadline implements [net.Conn].
func (c *observedConn) SetDeadline(t time.Time) error {
	c.logDeadline("setDeadline", t)
	return c.Conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *observedConn) SetReadDeadline(t time.Time) error {
	c.logDeadline("setReadDeadline", t)
	return c.Conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *observedConn) SetWriteDeadline(t time.Time) error {
	c.logDeadline("setWriteDeadline", t)
	return c.Conn.SetWriteDeadline(t)
}

func (c *observedConn) logDeadline(name string, deadline time.Time) {
	c.op.Logger.Debug(name, c.attrs(
		slog.Time("deadline", deadline),
		slog.Time("t", c.op.TimeNow()),
	)...)
}

// closeWrite half-closes conn if it implements CloseWrite.
func closeWrite(conn net.Conn) error {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return errors.ErrUnsupported
}
