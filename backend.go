package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tonimelisma/picasa-silo/internal/config"
	"github.com/tonimelisma/picasa-silo/internal/picasa"
	"github.com/tonimelisma/picasa-silo/internal/silo"
	"github.com/tonimelisma/picasa-silo/internal/store"
	"github.com/tonimelisma/picasa-silo/internal/tokenfile"
)

// dataDirPerms matches the token directory permissions.
const dataDirPerms = 0o700

// errNotAuthorized is shown when a command needs a session token.
var errNotAuthorized = errors.New("not authorized, run 'picasa-silo login' first")

// backend owns the long-lived pieces shared by every identity: the options
// store, the token store, and the HTTP client. Silos are built per identity.
type backend struct {
	cfg        *config.Resolved
	options    *store.Store
	tokens     picasa.TokenStore
	httpClient *http.Client
	logger     *slog.Logger
}

// openBackend opens the options database and selects the token backend.
func openBackend(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (*backend, error) {
	dbPath := cfg.Storage.DatabasePath
	if dbPath == "" {
		return nil, errors.New("cannot determine options database path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), dataDirPerms); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	options, err := store.Open(ctx, dbPath, logger)
	if err != nil {
		return nil, err
	}

	size, err := picasa.ParseSize(cfg.Silo.PhotoSize)
	if err != nil {
		options.Close()
		return nil, err
	}

	options.SetDefaultSize(size)

	var tokens picasa.TokenStore = options
	if cfg.Storage.TokenBackend == config.TokenBackendFile {
		tokens = tokenfile.NewStore(cfg.Storage.TokenDir, logger)
	}

	logger.Debug("backend ready",
		slog.String("database", dbPath),
		slog.String("token_backend", cfg.Storage.TokenBackend),
	)

	return &backend{
		cfg:        cfg,
		options:    options,
		tokens:     tokens,
		httpClient: defaultHTTPClient(),
		logger:     logger,
	}, nil
}

func (b *backend) Close() error {
	return b.options.Close()
}

// authFlow builds the authorization flow for identity.
func (b *backend) authFlow(identity string, logger *slog.Logger) *picasa.AuthFlow {
	return picasa.NewAuthFlow(identity, b.tokens, b.httpClient, picasa.AuthEndpoints{
		AuthURL:         b.cfg.API.AuthURL,
		SessionTokenURL: b.cfg.API.SessionTokenURL,
	}, logger)
}

// silo assembles the full silo for identity.
func (b *backend) silo(identity string, principal silo.Principal, logger *slog.Logger) *silo.Silo {
	auth := b.authFlow(identity, logger)
	client := picasa.NewClient(b.httpClient, auth, logger)

	photos := picasa.NewPhotoService(client, b.cfg.API.BaseURL, b.options, logger)
	photos.SetAlbumResults(b.cfg.Silo.AlbumResults)

	return silo.New(auth, photos, principal, b.cfg.Silo.IconURL, logger)
}

// withSilo opens the backend, builds the silo for the configured identity,
// and runs fn. Unauthorized sessions are rejected when requireAuth is set.
func withSilo(ctx context.Context, requireAuth bool, fn func(*backend, *silo.Silo) error) error {
	logger := cliLogger()

	b, err := openBackend(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	s := b.silo(resolvedCfg.User, silo.AllowAll{}, logger)

	if requireAuth && !s.IsAuthorized(ctx) {
		return errNotAuthorized
	}

	return fn(b, s)
}

// friendlyError rewrites an expired or revoked token error into advice.
func friendlyError(err error) error {
	if errors.Is(err, picasa.ErrUnauthorized) {
		return fmt.Errorf("%w (run 'picasa-silo login' to authorize again)", err)
	}

	return err
}
