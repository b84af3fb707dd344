// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"context"
	"net"
	"time"
)

// Config holds common configuration for nopaccept operations.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Dialer is used by [*ConnectFunc].
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// ListenConfig is used by [*Acceptor] to bind the listening socket.
	//
	// Set by [NewConfig] to [*net.ListenConfig].
	ListenConfig ListenConfig

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// ListenConfig abstracts the [*net.ListenConfig] behavior.
//
// By making [*Acceptor] depend on an abstract implementation we
// allow for unit testing with fake listeners.
type ListenConfig interface {
	Listen(ctx context.Context, network, address string) (net.Listener, error)
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		ErrClassifier: DefaultErrClassifier,
		ListenConfig:  &net.ListenConfig{},
		TimeNow:       time.Now,
	}
}
