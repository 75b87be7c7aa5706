// Package tokenfile stores AuthSub session tokens as one file per user
// identity. It is the file-backed alternative to the SQLite options store
// for hosts without a database.
package tokenfile

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the tokens directory.
const DirPerms = 0o700

// TokenType labels AuthSub session tokens in the file envelope.
const TokenType = "AuthSub"

// File is the on-disk format. The session token is the envelope's
// AccessToken; AuthSub session tokens do not expire or refresh.
type File struct {
	Token    *oauth2.Token `json:"token"`
	Identity string        `json:"identity"`
}

// Load reads a token file. Returns "" with a nil error if the file does
// not exist.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if tf.Token == nil || tf.Token.AccessToken == "" {
		return "", fmt.Errorf("tokenfile: %s missing token field (re-authorization required)", path)
	}

	return tf.Token.AccessToken, nil
}

// Save writes a token file atomically (write-to-temp + rename) with 0600
// permissions. Never logs token values.
func Save(path, identity, token string) error {
	if token == "" {
		return errors.New("tokenfile: refusing to save empty token")
	}

	data, err := json.MarshalIndent(File{
		Token:    &oauth2.Token{AccessToken: token, TokenType: TokenType},
		Identity: identity,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	// A power loss between close and rename must not leave a partial
	// token at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Store implements picasa.TokenStore with one file per identity in dir.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir. The directory is created on the
// first save.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{dir: dir, logger: logger}
}

// Path returns the token file path for identity. Identities are hashed so
// any string is a safe file name.
func (s *Store) Path(identity string) string {
	h := sha256.Sum256([]byte(identity))

	return filepath.Join(s.dir, fmt.Sprintf("token_%x.json", h))
}

// LoadToken implements picasa.TokenStore.
func (s *Store) LoadToken(_ context.Context, identity string) (string, error) {
	return Load(s.Path(identity))
}

// SaveToken implements picasa.TokenStore.
func (s *Store) SaveToken(_ context.Context, identity, token string) error {
	path := s.Path(identity)
	if err := Save(path, identity, token); err != nil {
		return err
	}

	s.logger.Debug("saved token file", slog.String("path", path))

	return nil
}

// DeleteToken implements picasa.TokenStore. A missing file is not an error.
func (s *Store) DeleteToken(_ context.Context, identity string) error {
	path := s.Path(identity)

	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no token file to remove", slog.String("path", path))
		return nil
	}

	if err != nil {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	s.logger.Debug("removed token file", slog.String("path", path))

	return nil
}
