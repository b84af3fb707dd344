// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Call returns a wrapped conn that delegates Close to the underlying conn.
func TestCancelWatchFuncCall(t *testing.T) {
	closeCalled := false
	mockConn := &netstub.FuncConn{
		CloseFunc: func() error {
			closeCalled = true
			return nil
		},
	}

	result, err := NewCancelWatchFunc().Call(context.Background(), mockConn)

	require.NoError(t, err)
	require.NotNil(t, result)
	require.NoError(t, result.Close())
	assert.True(t, closeCalled)
}

// Cancelling the context closes the underlying conn.
func TestCancelWatchFuncClosesOnCancel(t *testing.T) {
	done := make(chan bool, 1)
	mockConn := &netstub.FuncConn{
		CloseFunc: func() error {
			done <- true
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err := NewCancelWatchFunc().Call(ctx, mockConn)
	require.NoError(t, err)

	select {
	case <-done:
		t.Fatal("connection should not be closed yet")
	default:
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("connection not closed after cancel")
	}
}

// If the context is already done, the connection is closed right away.
func TestCancelWatchFuncAlreadyCancelled(t *testing.T) {
	done := make(chan bool, 1)
	mockConn := &netstub.FuncConn{
		CloseFunc: func() error {
			done <- true
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCancelWatchFunc().Call(ctx, mockConn)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("connection not closed")
	}
}

// Closing the wrapper unregisters the watcher so that a later cancel does
// not close the underlying conn a second time.
func TestCancelWatchFuncCloseUnregistersWatcher(t *testing.T) {
	closeCount := 0
	mockConn := &netstub.FuncConn{
		CloseFunc: func() error {
			closeCount++
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := NewCancelWatchFunc().Call(ctx, mockConn)
	require.NoError(t, err)

	require.NoError(t, result.Close())
	assert.Equal(t, 1, closeCount)

	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, closeCount)
}

// After the watcher closed the conn, Close does not close it again.
func TestCancelWatchFuncCloseAfterCancel(t *testing.T) {
	var (
		mu         sync.Mutex
		closeCount int
	)
	mockConn := &netstub.FuncConn{
		CloseFunc: func() error {
			mu.Lock()
			defer mu.Unlock()
			closeCount++
			return nil
		},
	}
	counted := func() int {
		mu.Lock()
		defer mu.Unlock()
		return closeCount
	}

	ctx, cancel := context.WithCancel(context.Background())
	result, err := NewCancelWatchFunc().Call(ctx, mockConn)
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool { return counted() == 1 }, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, result.Close(), net.ErrClosed)
	assert.Equal(t, 1, counted())
}

// A pump interrupted by cancellation closes the connection exactly once.
func TestCancelWatchFuncPumpClosesOnce(t *testing.T) {
	conn, _, closeCount := newScriptedConn(nil)
	unblock := make(chan struct{})
	conn.ReadFunc = func(b []byte) (int, error) {
		<-unblock
		return 0, net.ErrClosed
	}
	closeFunc := conn.CloseFunc
	conn.CloseFunc = func() error {
		err := closeFunc()
		select {
		case <-unblock:
		default:
			close(unblock)
		}
		return err
	}

	handler := Compose2(NewCancelWatchFunc(), NewStreamPumpFunc(NewConfig(), Identity, DefaultSLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := handler.Call(ctx, conn)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrTransport)
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not return after cancel")
	}
	assert.Equal(t, 1, closeCount())
}
