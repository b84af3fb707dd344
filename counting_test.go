// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingHandler(t *testing.T) {
	wantErr := errors.New("handler failed")
	calls := 0
	next := HandlerFunc(func(ctx context.Context, conn net.Conn) error {
		calls++
		return wantErr
	})

	fn := NewCountingHandler(next)
	assert.Equal(t, int64(0), fn.Count())

	_, err := fn.Call(context.Background(), newMinimalConn())

	// Counting happens before delegation and regardless of the outcome.
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), fn.Count())
}

func TestCountingHandlerConcurrent(t *testing.T) {
	next := HandlerFunc(func(ctx context.Context, conn net.Conn) error { return nil })
	fn := NewCountingHandler(next)

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			fn.Call(context.Background(), newMinimalConn())
		})
	}
	wg.Wait()

	assert.Equal(t, int64(100), fn.Count())
}
