// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
	"github.com/stretchr/testify/require"
)

// newCapturingLogger returns a logger that captures all log records. The
// returned function returns a snapshot of the records captured so far and
// is safe to call while other goroutines are still logging.
func newCapturingLogger() (*slog.Logger, func() []slog.Record) {
	var (
		mu      sync.Mutex
		records []slog.Record
	)
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			mu.Lock()
			records = append(records, record.Clone())
			mu.Unlock()
			return nil
		},
	}
	snapshot := func() []slog.Record {
		mu.Lock()
		defer mu.Unlock()
		return append([]slog.Record{}, records...)
	}
	return slog.New(handler), snapshot
}

// messages returns the message of each record.
func messages(records []slog.Record) (out []string) {
	for _, record := range records {
		out = append(out, record.Message)
	}
	return
}

// recordAttr returns the value of the attribute with the given key.
func recordAttr(record slog.Record, key string) (value slog.Value, found bool) {
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			value, found = attr.Value, true
			return false
		}
		return true
	})
	return
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set, which is what [safeconn] needs to build log attributes.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

// newScriptedConn returns a conn whose reads drain input, whose writes are
// appended to the returned output function's result, and whose Close calls
// are counted.
func newScriptedConn(input []byte) (conn *netstub.FuncConn, output func() []byte, closeCount func() int) {
	var (
		mu      sync.Mutex
		written []byte
		closed  int
	)
	conn = newMinimalConn()
	conn.ReadFunc = func(b []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(input) <= 0 {
			return 0, io.EOF
		}
		n := copy(b, input)
		input = input[n:]
		return n, nil
	}
	conn.WriteFunc = func(b []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		written = append(written, b...)
		return len(b), nil
	}
	conn.CloseFunc = func() error {
		mu.Lock()
		defer mu.Unlock()
		closed++
		return nil
	}
	output = func() []byte {
		mu.Lock()
		defer mu.Unlock()
		return append([]byte{}, written...)
	}
	closeCount = func() int {
		mu.Lock()
		defer mu.Unlock()
		return closed
	}
	return
}

// funcListenConfig is a [ListenConfig] implemented by a func.
type funcListenConfig struct {
	ListenFunc func(ctx context.Context, network, address string) (net.Listener, error)
}

func (lc *funcListenConfig) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return lc.ListenFunc(ctx, network, address)
}

// startAcceptor starts an acceptor on an ephemeral loopback port, waits for
// it to be ready, and arranges for it to be closed when the test ends.
func startAcceptor(t *testing.T, handler Handler, logger SLogger) *Acceptor {
	t.Helper()
	acceptor := NewAcceptor(NewConfig(), "127.0.0.1:0", handler, logger)
	require.NoError(t, acceptor.Start(context.Background()))
	t.Cleanup(func() {
		acceptor.Close()
	})
	select {
	case <-acceptor.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not become ready")
	}
	return acceptor
}

// dial connects to the acceptor and closes the connection when the test ends.
func dial(t *testing.T, acceptor *Acceptor) *net.TCPConn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", acceptor.AddrPort().String(), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn.(*net.TCPConn)
}

// waitLatch waits for the latch to fire or fails the test.
func waitLatch(t *testing.T, latch *Latch) {
	t.Helper()
	select {
	case <-latch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("latch did not fire")
	}
}
