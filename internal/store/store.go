// Package store is the host's persistent key-value options store, backed by
// an embedded SQLite database. It holds per-identity AuthSub session tokens
// and the photo size preference.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/tonimelisma/picasa-silo/internal/picasa"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Option names. Token options are suffixed with the user identity.
const (
	tokenOptionPrefix = "picasa_token_"
	SizeOption        = "picasasilo__picasa_size"
)

const busyTimeoutMillis = 5000

// Store implements picasa.TokenStore and picasa.SizeSource on top of the
// options table.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu          sync.RWMutex
	defaultSize picasa.Size
}

// Open opens (creating if needed) the options database at dbPath and
// applies pending migrations. Use ":memory:" for tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening options database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are private to their connection.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger, defaultSize: picasa.SizeOriginal}, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations with the goose
// Provider API.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("store: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("store: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value of option name. ok is false when it is unset.
func (s *Store) Get(ctx context.Context, name string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM options WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("store: reading option %q: %w", name, err)
	}

	return value, true, nil
}

// Set creates or replaces option name.
func (s *Store) Set(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO options (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("store: writing option %q: %w", name, err)
	}

	return nil
}

// Delete removes option name. Deleting an unset option is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM options WHERE name = ?", name); err != nil {
		return fmt.Errorf("store: deleting option %q: %w", name, err)
	}

	return nil
}

// LoadToken implements picasa.TokenStore.
func (s *Store) LoadToken(ctx context.Context, identity string) (string, error) {
	tok, _, err := s.Get(ctx, tokenOptionPrefix+identity)

	return tok, err
}

// SaveToken implements picasa.TokenStore.
func (s *Store) SaveToken(ctx context.Context, identity, token string) error {
	return s.Set(ctx, tokenOptionPrefix+identity, token)
}

// DeleteToken implements picasa.TokenStore.
func (s *Store) DeleteToken(ctx context.Context, identity string) error {
	return s.Delete(ctx, tokenOptionPrefix+identity)
}

// SetDefaultSize sets the size PhotoSize reports while no preference is
// stored. Safe to call while listings are running.
func (s *Store) SetDefaultSize(size picasa.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.defaultSize = size
}

// PhotoSize implements picasa.SizeSource.
func (s *Store) PhotoSize(ctx context.Context) (picasa.Size, error) {
	raw, ok, err := s.Get(ctx, SizeOption)
	if err != nil {
		return "", err
	}

	if !ok {
		s.mu.RLock()
		defer s.mu.RUnlock()

		return s.defaultSize, nil
	}

	size, err := picasa.ParseSize(raw)
	if err != nil {
		return "", fmt.Errorf("store: option %q: %w", SizeOption, err)
	}

	return size, nil
}

// SetPhotoSize persists the size preference.
func (s *Store) SetPhotoSize(ctx context.Context, size picasa.Size) error {
	if _, err := picasa.ParseSize(string(size)); err != nil {
		return err
	}

	s.logger.Info("photo size preference changed", slog.String("size", string(size)))

	return s.Set(ctx, SizeOption, string(size))
}
