// SPDX-License-Identifier: GPL-3.0-or-later

// Command nopaccept serves a byte-transform pipeline over TCP.
//
// Usage:
//
//	nopaccept [-address 127.0.0.1:9000] [-transform caseflip] [-workers 4] [-queue 16] [-debug]
//
// With -workers 0 connections are handled one at a time on the accept
// goroutine. Logs are emitted as JSON on stderr. Interrupt with ^C.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bassosimone/nopaccept"
	"github.com/bassosimone/nopaccept/sockerr"
)

func main() {
	address := flag.String("address", "127.0.0.1:9000", "TCP address to listen on")
	transformName := flag.String("transform", "caseflip", "byte transform: identity or caseflip")
	workers := flag.Int("workers", 4, "number of workers (0 handles connections on the accept goroutine)")
	queue := flag.Int("queue", 16, "capacity of the worker pool queue")
	debug := flag.Bool("debug", false, "log per-I/O events")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	transform, err := nopaccept.ParseByteTransform(*transformName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nopaccept: %s\n", err.Error())
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := nopaccept.NewConfig()

	terminal := nopaccept.Compose3(
		nopaccept.NewObserveConnFunc(cfg, logger),
		nopaccept.NewCancelWatchFunc(),
		nopaccept.NewStreamPumpFunc(cfg, transform, logger),
	)
	counter := nopaccept.NewCountingHandler(nopaccept.NewLoggingHandler(cfg, terminal, logger))

	var handler nopaccept.Handler = counter
	var pool *nopaccept.BoundedPool
	if *workers > 0 {
		pool = nopaccept.NewBoundedPool(*workers, *queue)
		handler = nopaccept.NewWorkerPoolHandler(cfg, pool, counter, logger)
	}

	acceptor := nopaccept.NewAcceptor(cfg, *address, handler, logger)
	if err := acceptor.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nopaccept: %s\n", err.Error())
		if sockerr.IsBindFailure(err) {
			fmt.Fprintf(os.Stderr, "nopaccept: try another -address\n")
		}
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		acceptor.Close()
	}()

	err = acceptor.Wait()
	if pool != nil {
		pool.ShutdownNow()
	}
	logger.Info("served", slog.Int64("connections", counter.Count()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "nopaccept: %s\n", err.Error())
		os.Exit(1)
	}
}
