// SPDX-License-Identifier: GPL-3.0-or-later

// Package nopaccept provides a blocking TCP acceptor with a composable
// per-connection handling pipeline.
//
// # Core Abstraction
//
// The package reuses the generic operation of the nop family:
//
//	type Func[A, B any] interface {
//		Call(ctx context.Context, input A) (B, error)
//	}
//
// A [Handler] is a Func[net.Conn, Unit]: it receives ownership of one
// accepted connection and must close it exactly once, whatever happens.
// Decorators are Handlers wrapping another Handler; connection wrappers
// are Func[net.Conn, net.Conn] stages that [Compose2] and [Compose3]
// prepend to a Handler.
//
// # Available Primitives
//
// Acceptance:
//   - [Acceptor]: binds a TCP socket, signals readiness once, and runs a
//     blocking accept loop on a dedicated goroutine
//
// Terminal handler:
//   - [StreamPumpFunc]: pumps the bytes read from the connection back into
//     it through a [ByteTransform] ([Identity] or [CaseFlip]) until EOF
//   - [Pump]: the same algorithm over a distinct reader and writer, for
//     callers that are not handling a connection
//
// Decorators:
//   - [LoggingHandler]: acceptedConn/finishedConn events around the chain
//   - [CountingHandler]: counts connections
//   - [ReadySignalHandler]: counts down a [Latch] per connection
//   - [WorkerPoolHandler]: offloads the chain to a [WorkerPool] such as
//     [BoundedPool] and returns immediately
//
// Connection wrappers:
//   - [ObserveConnFunc]: logs I/O operations
//   - [CancelWatchFunc]: closes the connection when the context is done
//
// Client side:
//   - [NewEndpointFunc] and [ConnectFunc]: dial an acceptor
//
// # Composition
//
// A typical chain, outermost first:
//
//	pump := nopaccept.NewStreamPumpFunc(cfg, nopaccept.CaseFlip, logger)
//	terminal := nopaccept.Compose3(
//		nopaccept.NewObserveConnFunc(cfg, logger),
//		nopaccept.NewCancelWatchFunc(),
//		pump,
//	)
//	logged := nopaccept.NewLoggingHandler(cfg, terminal, logger)
//	offload := nopaccept.NewWorkerPoolHandler(cfg, pool, logged, logger)
//	acceptor := nopaccept.NewAcceptor(cfg, "127.0.0.1:0", offload, logger)
//
// Without a [WorkerPoolHandler], the chain runs on the accept goroutine
// and the next connection is accepted only after it returns.
//
// # Stopping
//
// [*Acceptor.Stop] only sets a flag checked after each handled
// connection: it does not unblock a pending Accept, so the loop stops once
// the next connection has been handled. [*Acceptor.Close] additionally closes
// the listening socket. Neither closes connections already handed to the
// chain; pool-level interruption is provided by [*BoundedPool.ShutdownNow]
// together with [CancelWatchFunc].
//
// # Observability
//
// All primitives log through [SLogger] (satisfied by [*slog.Logger]);
// by default logging is disabled. Lifecycle events (listen, accept,
// acceptedConn, finishedConn, pump, close) use [slog.LevelInfo] and
// per-I/O events use [slog.LevelDebug]. Completion events carry t0, t,
// err and errClass, the latter computed by the configured [ErrClassifier].
package nopaccept
