// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewLoggingHandler returns a new [*LoggingHandler] wrapping next.
//
// The cfg argument contains the common configuration for nopaccept operations.
//
// The next argument is the [Handler] to delegate to.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewLoggingHandler(cfg *Config, next Handler, logger SLogger) *LoggingHandler {
	return &LoggingHandler{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Next:          next,
		TimeNow:       cfg.TimeNow,
	}
}

// LoggingHandler is a [Handler] decorator emitting one acceptedConn event
// before delegating and one finishedConn event afterwards.
//
// The finishedConn event is emitted unconditionally, including when the
// wrapped handler fails or panics, and carries the err and errClass
// attributes. The wrapped handler's error is returned unchanged.
//
// Both events carry a spanID unique to the connection.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type LoggingHandler struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewLoggingHandler] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewLoggingHandler] to the user-provided logger.
	Logger SLogger

	// Next is the wrapped [Handler].
	//
	// Set by [NewLoggingHandler] to the user-provided handler.
	Next Handler

	// TimeNow is the function to get the current time.
	//
	// Set by [NewLoggingHandler] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Handler = &LoggingHandler{}

// Call implements [Handler].
func (op *LoggingHandler) Call(ctx context.Context, conn net.Conn) (_ Unit, err error) {
	var (
		laddr    = safeconn.LocalAddr(conn)
		protocol = safeconn.Network(conn)
		raddr    = safeconn.RemoteAddr(conn)
		spanID   = NewSpanID()
		t0       = op.TimeNow()
	)

	op.Logger.Info(
		"acceptedConn",
		slog.String("localAddr", laddr),
		slog.String("protocol", protocol),
		slog.String("remoteAddr", raddr),
		slog.String("spanID", spanID),
		slog.Time("t", t0),
	)

	defer func() {
		op.Logger.Info(
			"finishedConn",
			slog.Any("err", err),
			slog.String("errClass", op.ErrClassifier.Classify(err)),
			slog.String("localAddr", laddr),
			slog.String("protocol", protocol),
			slog.String("remoteAddr", raddr),
			slog.String("spanID", spanID),
			slog.Time("t0", t0),
			slog.Time("t", op.TimeNow()),
		)
	}()

	return op.Next.Call(ctx, conn)
}
