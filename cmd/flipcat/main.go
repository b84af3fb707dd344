// SPDX-License-Identifier: GPL-3.0-or-later

// Command flipcat copies stdin to a nopaccept server and the server's
// output to stdout.
//
// Usage:
//
//	flipcat [-verbose] 127.0.0.1:9000
//
// When stdin reaches EOF, flipcat half-closes the connection and keeps
// reading until the server closes it. Interrupt with ^C.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"os/signal"

	"github.com/bassosimone/nopaccept"
)

func main() {
	verbose := flag.Bool("verbose", false, "log connection events on stderr")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: flipcat [-verbose] <ip:port>\n")
		os.Exit(2)
	}

	endpoint, err := netip.ParseAddrPort(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "flipcat: %s\n", err.Error())
		os.Exit(2)
	}

	var logger nopaccept.SLogger = nopaccept.DefaultSLogger()
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil)).With("spanID", nopaccept.NewSpanID())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := nopaccept.NewConfig()
	dialPipe := nopaccept.Compose4(
		nopaccept.NewEndpointFunc(endpoint),
		nopaccept.NewConnectFunc(cfg, logger),
		nopaccept.NewObserveConnFunc(cfg, logger),
		nopaccept.NewCancelWatchFunc(),
	)

	conn, err := dialPipe.Call(ctx, nopaccept.Unit{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "flipcat: %s\n", err.Error())
		os.Exit(1)
	}
	defer conn.Close()

	go func() {
		io.Copy(conn, os.Stdin)
		closeWrite(conn)
	}()

	if _, err := io.Copy(os.Stdout, conn); err != nil {
		fmt.Fprintf(os.Stderr, "flipcat: %s\n", err.Error())
		os.Exit(1)
	}
}

// closeWrite half-closes conn, falling back to a full close when the
// underlying connection cannot shut down only its write side.
func closeWrite(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok && cw.CloseWrite() == nil {
		return
	}
	conn.Close()
}
