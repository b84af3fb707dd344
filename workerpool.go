// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// NewWorkerPoolHandler returns a new [*WorkerPoolHandler].
//
// The cfg argument contains the common configuration for nopaccept operations.
//
// The pool argument is the [WorkerPool] running the offloaded work.
//
// The next argument is the [Handler] to run on the pool.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewWorkerPoolHandler(cfg *Config, pool WorkerPool, next Handler, logger SLogger) *WorkerPoolHandler {
	runtimex.Assert(pool != nil)
	return &WorkerPoolHandler{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Next:          next,
		Pool:          pool,
		TimeNow:       cfg.TimeNow,
	}
}

// WorkerPoolHandler is a [Handler] decorator submitting Next to a
// [WorkerPool] and returning without waiting for it to complete.
//
// On successful submission ownership of the connection moves to the
// submitted task. If the pool rejects the task, the handler still owns
// the connection: it closes it and returns the rejection error. Rejected
// tasks are not retried.
//
// The offloaded handler runs with a context that is done when either the
// caller's context or the pool's task context is done.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type WorkerPoolHandler struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewWorkerPoolHandler] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewWorkerPoolHandler] to the user-provided logger.
	Logger SLogger

	// Next is the [Handler] run on the pool.
	//
	// Set by [NewWorkerPoolHandler] to the user-provided handler.
	Next Handler

	// Pool is the [WorkerPool] to submit to.
	//
	// Set by [NewWorkerPoolHandler] to the user-provided pool.
	Pool WorkerPool

	// TimeNow is the function to get the current time.
	//
	// Set by [NewWorkerPoolHandler] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Handler = &WorkerPoolHandler{}

// Call implements [Handler].
func (op *WorkerPoolHandler) Call(ctx context.Context, conn net.Conn) (Unit, error) {
	err := op.Pool.Submit(func(taskCtx context.Context) {
		op.run(ctx, taskCtx, conn)
	})
	if err != nil {
		op.Logger.Info(
			"offloadRejected",
			slog.Any("err", err),
			slog.String("errClass", op.ErrClassifier.Classify(err)),
			slog.String("localAddr", safeconn.LocalAddr(conn)),
			slog.String("protocol", safeconn.Network(conn)),
			slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
			slog.Time("t", op.TimeNow()),
		)
		conn.Close()
		return Unit{}, fmt.Errorf("offload rejected: %w", err)
	}
	return Unit{}, nil
}

func (op *WorkerPoolHandler) run(callerCtx, taskCtx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(callerCtx)
	defer cancel()
	stop := context.AfterFunc(taskCtx, cancel)
	defer stop()

	t0 := op.TimeNow()
	_, err := op.Next.Call(ctx, conn)

	op.Logger.Debug(
		"offloadDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
