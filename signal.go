package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// exitProcess ends the process on a forced exit. Tests replace it.
var exitProcess = os.Exit

// shutdownContext returns a context canceled by the first SIGINT or SIGTERM.
// A second signal exits immediately, for when draining hangs.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, _ := watchSignals(parent, logger, false)
	return ctx
}

// watchSignals is shutdownContext for serve. With hangup set, SIGHUP is
// also caught and reported on the returned channel; a burst of hangups
// received before the reader catches up counts as one.
func watchSignals(parent context.Context, logger *slog.Logger, hangup bool) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	hangups := make(chan struct{}, 1)

	watched := []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	if hangup {
		watched = append(watched, syscall.SIGHUP)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, watched...)

	go func() {
		defer signal.Stop(sigCh)

		// Before the first shutdown signal the watcher lives as long as ctx;
		// after it, as long as the parent, so a second signal can force exit.
		done := ctx.Done()
		stopping := false

		for {
			select {
			case <-done:
				return

			case sig := <-sigCh:
				switch {
				case sig == syscall.SIGHUP:
					logger.Info("hangup received")

					select {
					case hangups <- struct{}{}:
					default:
					}

				case stopping:
					logger.Warn("forced exit", slog.String("signal", sig.String()))
					exitProcess(1)

					return

				default:
					logger.Info("shutting down", slog.String("signal", sig.String()))

					stopping = true
					done = parent.Done()

					cancel()
				}
			}
		}
	}()

	return ctx, hangups
}
