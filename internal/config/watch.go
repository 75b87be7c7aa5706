package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors produce on save
// (truncate, write, rename) into one reload.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the config file whenever it changes on disk, until ctx is
// canceled. A file that fails to parse or validate is logged and ignored;
// the previous config stays in effect. onReload runs after each successful
// Update and may be nil.
//
// The parent directory is watched rather than the file, so atomic
// rename-over saves and files created after startup are both seen.
func (h *Holder) Watch(ctx context.Context, logger *slog.Logger, onReload func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	logger.Debug("watching config file", slog.String("path", h.path))

	name := filepath.Base(h.path)

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(ev.Name) != name || !touchesContent(ev) {
				continue
			}

			timer.Reset(reloadDebounce)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", watchErr.Error()))

		case <-timer.C:
			h.Reload(logger, onReload)
		}
	}
}

func touchesContent(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

// Reload re-reads the config file once, with the same keep-previous-on-error
// rules as Watch.
func (h *Holder) Reload(logger *slog.Logger, onReload func(*Config)) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := LoadOrDefault(h.path)
	if err != nil {
		logger.Warn("config reload failed, keeping previous config",
			slog.String("path", h.path),
			slog.String("error", err.Error()),
		)

		return
	}

	gen := h.Update(cfg)

	logger.Info("config reloaded",
		slog.String("path", h.path),
		slog.Uint64("generation", gen),
	)

	if onReload != nil {
		onReload(cfg)
	}
}
