package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/picasa-silo/internal/config"
	"github.com/tonimelisma/picasa-silo/internal/events"
	"github.com/tonimelisma/picasa-silo/internal/metrics"
	"github.com/tonimelisma/picasa-silo/internal/picasa"
)

// serverReadHeaderTimeout bounds slow clients sending request headers.
const serverReadHeaderTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the silo to a host over local HTTP",
		Long: `Serve the silo over HTTP so a host application can browse the virtual
tree, contribute media controls, create albums and upload photos.

The identity defaults to --user and can be chosen per request with the
X-Silo-User header. Prometheus metrics are served at /metrics. The config file is watched and also re-read on SIGHUP
(see "reload"); log level and the default photo size apply without a
restart. Only one server may run per data directory.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (default from config)")

	return cmd
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask a running serve to reload its config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			pid, err := signalReload(pidFilePath(resolvedCfg.Storage.DatabasePath))
			if err != nil {
				return err
			}

			statusf("Reload requested (PID %d).\n", pid)

			return nil
		},
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	levelVar := new(slog.LevelVar)
	levelVar.Set(logLevel(&resolvedCfg.Config))
	logger := buildLogger(levelVar)

	ctx, hangups := watchSignals(cmd.Context(), logger, true)

	listen := resolvedCfg.Server.Listen
	if l, _ := cmd.Flags().GetString("listen"); l != "" {
		listen = l
	}

	releasePID, err := writePIDFile(pidFilePath(resolvedCfg.Storage.DatabasePath))
	if err != nil {
		return err
	}
	defer releasePID()

	b, err := openBackend(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}

	m := metrics.New()
	b.httpClient.Transport = m.InstrumentTransport(b.httpClient.Transport)

	var hub *events.Hub
	if resolvedCfg.Server.Events {
		hub = events.NewHub(logger)
		m.TrackGauge("event_subscribers", "Connected event stream clients.",
			func() float64 { return float64(hub.Subscribers()) })
	}

	g, gctx := errgroup.WithContext(ctx)

	api := newSiloServer(b, resolvedCfg.User, hub, m, logger)
	api.origin = listenerOrigin(listener.Addr())

	srv := &http.Server{
		Handler:           api.routes(),
		ReadHeaderTimeout: serverReadHeaderTimeout,
		// Event streams are hijacked and outlive Shutdown; this ends them.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	holder := config.NewHolder(&resolvedCfg.Config, resolvedCfg.Path)
	m.TrackGauge("config_generation", "Config reloads applied since start.",
		func() float64 { return float64(holder.Snapshot().Generation) })

	onReload := func(cfg *config.Config) {
		applyReload(cfg, b, levelVar, logger)

		if hub != nil {
			hub.Publish(events.Event{Type: events.TypeConfigReloaded})
		}
	}

	g.Go(func() error {
		logger.Info("serving", slog.String("addr", listener.Addr().String()))

		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownServer(srv, logger)

		return nil
	})

	g.Go(func() error {
		if err := holder.Watch(gctx, logger, onReload); err != nil {
			// Serving continues; SIGHUP still reloads.
			logger.Warn("config watch unavailable", slog.String("error", err.Error()))
		}

		return nil
	})

	g.Go(func() error {
		reloadOnHangup(gctx, hangups, holder, logger, onReload)
		return nil
	})

	return g.Wait()
}

// reloadOnHangup reloads the config for every hangup until ctx is done.
func reloadOnHangup(
	ctx context.Context, hangups <-chan struct{}, holder *config.Holder,
	logger *slog.Logger, onReload func(*config.Config),
) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hangups:
			holder.Reload(logger, onReload)
		}
	}
}

// applyReload pushes reloadable settings into the running server. The
// environment photo size override still wins over the file.
func applyReload(cfg *config.Config, b *backend, levelVar *slog.LevelVar, logger *slog.Logger) {
	levelVar.Set(logLevel(cfg))

	raw := cfg.Silo.PhotoSize
	if env := config.ReadEnvOverrides(); env.PhotoSize != nil {
		raw = *env.PhotoSize
	}

	size, err := picasa.ParseSize(raw)
	if err != nil {
		logger.Warn("ignoring invalid photo size", slog.String("size", raw))
		return
	}

	b.options.SetDefaultSize(size)

	logger.Debug("reload applied",
		slog.String("log_level", levelVar.Level().String()),
		slog.String("photo_size", string(size)),
	)
}
