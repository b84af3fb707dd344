// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// AcceptorState is the lifecycle state of an [*Acceptor].
type AcceptorState int32

const (
	// AcceptorCreated means that Start has not bound the socket yet.
	AcceptorCreated AcceptorState = iota

	// AcceptorListening means that the socket is bound and the accept
	// loop is running.
	AcceptorListening

	// AcceptorStopped means that the accept loop terminated, either
	// because it was stopped or because Accept failed, or that binding
	// the socket failed.
	AcceptorStopped
)

// String implements [fmt.Stringer].
func (s AcceptorState) String() string {
	switch s {
	case AcceptorCreated:
		return "created"
	case AcceptorListening:
		return "listening"
	case AcceptorStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// NewAcceptor returns a new [*Acceptor].
//
// The cfg argument contains the common configuration for nopaccept operations.
//
// The address argument is the TCP address to bind (e.g., "127.0.0.1:0");
// port zero selects an ephemeral port, which [*Acceptor.AddrPort] returns
// once the acceptor is listening.
//
// The handler argument is the [Handler] invoked for each accepted connection.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewAcceptor(cfg *Config, address string, handler Handler, logger SLogger) *Acceptor {
	runtimex.Assert(handler != nil)
	return &Acceptor{
		Address:       address,
		ErrClassifier: cfg.ErrClassifier,
		Handler:       handler,
		ListenConfig:  cfg.ListenConfig,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
		done:          make(chan struct{}),
		ready:         NewLatch(1),
	}
}

// Acceptor owns a listening TCP socket and runs a blocking accept loop on
// a dedicated goroutine, passing every accepted connection to Handler.
//
// Handler runs synchronously on the accept goroutine: the next connection
// is not accepted until it returns. Wrap the chain in a [*WorkerPoolHandler]
// to process connections concurrently. Handler errors are confined to
// their connection and never stop the loop.
//
// [*Acceptor.Stop] is cooperative: it does not interrupt a blocked Accept.
// Use [*Acceptor.Close] to close the listening socket.
//
// The zero value is invalid; use [NewAcceptor]. Exported fields are safe
// to modify after construction but before calling Start.
type Acceptor struct {
	// Address is the TCP address to bind.
	//
	// Set by [NewAcceptor] to the user-provided address.
	Address string

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewAcceptor] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Handler processes each accepted connection.
	//
	// Set by [NewAcceptor] to the user-provided handler.
	Handler Handler

	// ListenConfig binds the listening socket.
	//
	// Set by [NewAcceptor] from [Config.ListenConfig].
	ListenConfig ListenConfig

	// Logger is the [SLogger] to use.
	//
	// Set by [NewAcceptor] to the user-provided logger.
	Logger SLogger

	// OnListening, if not nil, is called exactly once after the socket
	// is bound and before the accept loop starts.
	//
	// Set by [NewAcceptor] to nil.
	OnListening func()

	// TimeNow is the function to get the current time.
	//
	// Set by [NewAcceptor] from [Config.TimeNow].
	TimeNow func() time.Time

	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}
	err       error
	listener  net.Listener
	mu        sync.Mutex
	ready     *Latch
	started   atomic.Bool
	state     atomic.Int32
	stopped   atomic.Bool
}

// Start binds the listening socket, signals readiness, and starts the
// accept loop on a new goroutine.
//
// A bind failure is returned and the acceptor never listens. The ctx is
// used for binding and is then passed to Handler for every connection;
// its cancellation does not stop the accept loop.
//
// Calling Start more than once is a programming error and panics.
func (a *Acceptor) Start(ctx context.Context) error {
	runtimex.Assert(a.started.CompareAndSwap(false, true))

	t0 := a.TimeNow()
	a.Logger.Info(
		"listenStart",
		slog.String("localAddr", a.Address),
		slog.String("protocol", "tcp"),
		slog.Time("t", t0),
	)

	ln, err := a.ListenConfig.Listen(ctx, "tcp", a.Address)

	a.Logger.Info(
		"listenDone",
		slog.Any("err", err),
		slog.String("errClass", a.ErrClassifier.Classify(err)),
		slog.String("localAddr", listenerAddr(ln, a.Address)),
		slog.String("protocol", "tcp"),
		slog.Time("t0", t0),
		slog.Time("t", a.TimeNow()),
	)

	if err != nil {
		a.state.Store(int32(AcceptorStopped))
		a.err = err
		close(a.done)
		return err
	}

	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()
	a.state.Store(int32(AcceptorListening))

	if a.OnListening != nil {
		a.OnListening()
	}
	a.ready.CountDown()

	go a.loop(ctx, ln)
	return nil
}

func (a *Acceptor) loop(ctx context.Context, ln net.Listener) {
	defer close(a.done)
	defer a.state.Store(int32(AcceptorStopped))
	defer a.closeListener(ln)

	// The stopped flag is checked after each connection, so that a Stop
	// takes effect once the next connection has been handled.
	for {
		conn, err := a.accept(ln)
		if err != nil {
			if !a.closed.Load() {
				a.err = err
			}
			return
		}
		a.handle(ctx, conn)
		if a.stopped.Load() {
			return
		}
	}
}

// closeListener closes ln unless already closed and returns the error
// of the call that closed it, or nil.
func (a *Acceptor) closeListener(ln net.Listener) (err error) {
	a.closeOnce.Do(func() {
		err = ln.Close()
	})
	return
}

func (a *Acceptor) accept(ln net.Listener) (net.Conn, error) {
	laddr := listenerAddr(ln, a.Address)
	t0 := a.TimeNow()
	a.Logger.Debug(
		"acceptStart",
		slog.String("localAddr", laddr),
		slog.String("protocol", "tcp"),
		slog.Time("t", t0),
	)

	conn, err := ln.Accept()

	a.Logger.Info(
		"acceptDone",
		slog.Any("err", err),
		slog.String("errClass", a.ErrClassifier.Classify(err)),
		slog.String("localAddr", laddr),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", a.TimeNow()),
	)
	return conn, err
}

func (a *Acceptor) handle(ctx context.Context, conn net.Conn) {
	raddr := safeconn.RemoteAddr(conn)
	_, err := a.Handler.Call(ctx, conn)
	if err != nil {
		a.Logger.Debug(
			"handleFailed",
			slog.Any("err", err),
			slog.String("errClass", a.ErrClassifier.Classify(err)),
			slog.String("remoteAddr", raddr),
			slog.Time("t", a.TimeNow()),
		)
	}
}

// Stop asks the accept loop to terminate.
//
// The request is observed after each handled connection only: a loop
// blocked in Accept keeps waiting and stops after handling the next
// connection (or never, if none arrives). This holds also when Stop is
// called before the first connection. Stop is idempotent and never blocks.
func (a *Acceptor) Stop() {
	a.stopped.Store(true)
}

// Close stops the accept loop and closes the listening socket, which
// unblocks a pending Accept. The resulting Accept error is not reported
// by [*Acceptor.Wait]. Close is idempotent: once the listener has been
// closed, by an earlier Close or by the loop exiting, it returns nil. It
// does not close connections already handed to Handler.
func (a *Acceptor) Close() error {
	a.closed.Store(true)
	a.stopped.Store(true)
	a.mu.Lock()
	ln := a.listener
	a.mu.Unlock()
	if ln == nil {
		return nil
	}
	return a.closeListener(ln)
}

// Wait blocks until the accept loop terminates and returns the Accept or
// bind failure that terminated it, or nil if it was stopped or closed.
//
// Wait blocks forever if Start was never called.
func (a *Acceptor) Wait() error {
	<-a.done
	return a.err
}

// Ready returns a channel closed once the socket is listening.
func (a *Acceptor) Ready() <-chan struct{} {
	return a.ready.Done()
}

// State returns the current [AcceptorState].
func (a *Acceptor) State() AcceptorState {
	return AcceptorState(a.state.Load())
}

// Addr returns the bound address or nil if the socket is not bound yet.
func (a *Acceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// AddrPort returns the bound address as a [netip.AddrPort], which is
// the zero value if the socket is not bound yet. IPv4-mapped IPv6
// addresses are unmapped.
func (a *Acceptor) AddrPort() netip.AddrPort {
	addr := a.Addr()
	if addr == nil {
		return netip.AddrPort{}
	}
	var epnt netip.AddrPort
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		epnt = tcpAddr.AddrPort()
	} else {
		epnt, _ = netip.ParseAddrPort(addr.String())
	}
	return netip.AddrPortFrom(epnt.Addr().Unmap(), epnt.Port())
}

// Port returns the bound port or zero if the socket is not bound yet.
func (a *Acceptor) Port() uint16 {
	return a.AddrPort().Port()
}

func listenerAddr(ln net.Listener, fallback string) string {
	if ln == nil || ln.Addr() == nil {
		return fallback
	}
	return ln.Addr().String()
}
