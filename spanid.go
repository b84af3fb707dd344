// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying a span.
//
// [*LoggingHandler] opens one span per accepted connection so that the
// acceptedConn and finishedConn events (and any I/O events logged by a
// logger derived with [*slog.Logger.With]) can be correlated.
//
// This function panics if the system random number generator fails.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
