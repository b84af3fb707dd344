// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/nopaccept/sockerr"
	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// ErrTransport wraps every read, write or close failure observed while
// pumping a stream. Use [errors.Is] to check for it.
var ErrTransport = errors.New("transport failure")

// Pump reads in one byte at a time until EOF and writes transform(b) to
// out for every byte read, preserving order.
//
// Both in and out are closed before Pump returns, on success and on
// failure. A read or write error aborts the pump and is returned wrapped
// in [ErrTransport]. When the copy succeeds, a failure to close either
// stream is returned instead.
func Pump(in io.ReadCloser, out io.WriteCloser, transform ByteTransform) error {
	_, err := pumpAndClose(in, out, transform, make([]byte, 1), in, out)
	return err
}

// pumpAndClose runs pumpBytes and then closes every closer. The copy error
// takes precedence over close errors, which are wrapped in [ErrTransport].
func pumpAndClose(in io.Reader, out io.Writer, transform ByteTransform,
	buf []byte, closers ...io.Closer) (int64, error) {
	count, err := pumpBytes(in, out, transform, buf)
	var cerrs []error
	for _, closer := range closers {
		cerrs = append(cerrs, closer.Close())
	}
	if err != nil {
		return count, err
	}
	if cerr := errors.Join(cerrs...); cerr != nil {
		return count, fmt.Errorf("%w: close: %w", ErrTransport, cerr)
	}
	return count, nil
}

// pumpBytes copies in to out through transform using buf as the read
// buffer and returns the number of bytes written.
func pumpBytes(in io.Reader, out io.Writer, transform ByteTransform, buf []byte) (int64, error) {
	runtimex.Assert(len(buf) > 0)
	var count int64
	for {
		n, err := in.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for idx := range chunk {
				chunk[idx] = transform(chunk[idx])
			}
			if _, werr := out.Write(chunk); werr != nil {
				return count, fmt.Errorf("%w: write: %w", ErrTransport, werr)
			}
			count += int64(n)
		}
		switch {
		case errors.Is(err, io.EOF):
			return count, nil
		case err != nil:
			return count, fmt.Errorf("%w: read: %w", ErrTransport, err)
		}
	}
}

// NewStreamPumpFunc returns a new [*StreamPumpFunc].
//
// The cfg argument contains the common configuration for nopaccept operations.
//
// The transform argument is the [ByteTransform] applied to every byte.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewStreamPumpFunc(cfg *Config, transform ByteTransform, logger SLogger) *StreamPumpFunc {
	runtimex.Assert(transform != nil)
	return &StreamPumpFunc{
		BufferSize:    1,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
		Transform:     transform,
	}
}

// StreamPumpFunc is the terminal [Handler]: it pumps the bytes read from a
// connection back into the same connection through a [ByteTransform] until
// the peer closes its write side, then closes the connection.
//
// The connection is closed exactly once on every path. Transport failures
// are returned wrapped in [ErrTransport].
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type StreamPumpFunc struct {
	// BufferSize is the maximum number of bytes read per Read call.
	//
	// Set by [NewStreamPumpFunc] to 1 (byte-at-a-time). Values <= 0 mean 1.
	BufferSize int

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewStreamPumpFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewStreamPumpFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewStreamPumpFunc] from [Config.TimeNow].
	TimeNow func() time.Time

	// Transform is the [ByteTransform] to apply.
	//
	// Set by [NewStreamPumpFunc] to the user-provided transform.
	Transform ByteTransform
}

var _ Handler = &StreamPumpFunc{}

// Call implements [Handler].
func (op *StreamPumpFunc) Call(ctx context.Context, conn net.Conn) (Unit, error) {
	t0 := op.TimeNow()
	op.Logger.Info(
		"pumpStart",
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t", t0),
	)

	// conn is both ends, so it is closed once.
	count, err := pumpAndClose(conn, conn, op.Transform, make([]byte, max(op.BufferSize, 1)), conn)

	op.Logger.Info(
		"pumpDone",
		slog.Int64("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.Bool("peerGone", sockerr.IsPeerGone(err)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
	return Unit{}, err
}
