// SPDX-License-Identifier: GPL-3.0-or-later

package nopaccept_test

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bassosimone/nopaccept"
	"github.com/bassosimone/runtimex"
)

// This example serves the case-flip pipeline on an ephemeral loopback
// port and talks to it using the client pipeline.
func Example_caseFlipRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Logging is disabled by default. Pass a [*slog.Logger] to see events.
	cfg := nopaccept.NewConfig()
	logger := nopaccept.DefaultSLogger()

	// Server side: observe, watch for cancellation, then pump through CaseFlip.
	terminal := nopaccept.Compose3(
		nopaccept.NewObserveConnFunc(cfg, logger),
		nopaccept.NewCancelWatchFunc(),
		nopaccept.NewStreamPumpFunc(cfg, nopaccept.CaseFlip, logger),
	)
	handler := nopaccept.NewLoggingHandler(cfg, terminal, logger)

	acceptor := nopaccept.NewAcceptor(cfg, "127.0.0.1:0", handler, logger)
	if err := acceptor.Start(ctx); err != nil {
		panic(err)
	}
	defer acceptor.Close()
	<-acceptor.Ready()

	// Client side: connect to the bound endpoint.
	dialPipe := nopaccept.Compose3(
		nopaccept.NewEndpointFunc(acceptor.AddrPort()),
		nopaccept.NewConnectFunc(cfg, logger),
		nopaccept.NewCancelWatchFunc(),
	)
	conn := runtimex.PanicOnError1(dialPipe.Call(ctx, nopaccept.Unit{}))
	defer conn.Close()

	runtimex.PanicOnError1(conn.Write([]byte("hello")))
	reply := make([]byte, 5)
	runtimex.PanicOnError1(io.ReadFull(conn, reply))
	fmt.Printf("%s\n", reply)

	// Output:
	// HELLO
}
