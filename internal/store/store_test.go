package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.Context(), ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := newTestStore(t)

	var count int
	err := s.db.QueryRowContext(t.Context(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'options'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOpen_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.db")

	s, err := Open(t.Context(), path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveToken(t.Context(), "alice", "tok"))
	require.NoError(t, s.Close())

	s, err = Open(t.Context(), path, nil)
	require.NoError(t, err)
	defer s.Close()

	tok, err := s.LoadToken(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestOptions_GetSetDelete(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(t.Context(), "k", "v1"))
	require.NoError(t, s.Set(t.Context(), "k", "v2"))

	v, ok, err := s.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(t.Context(), "k"))
	require.NoError(t, s.Delete(t.Context(), "k"))

	_, ok, err = s.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokens_PerIdentity(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.LoadToken(t.Context(), "alice")
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SaveToken(t.Context(), "alice", "A"))
	require.NoError(t, s.SaveToken(t.Context(), "bob", "B"))

	v, ok, err := s.Get(t.Context(), "picasa_token_alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	require.NoError(t, s.DeleteToken(t.Context(), "alice"))
	require.NoError(t, s.DeleteToken(t.Context(), "alice"))

	tok, err = s.LoadToken(t.Context(), "alice")
	require.NoError(t, err)
	assert.Empty(t, tok)

	tok, err = s.LoadToken(t.Context(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "B", tok)
}

func TestPhotoSize_DefaultWhenUnset(t *testing.T) {
	s := newTestStore(t)

	size, err := s.PhotoSize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, picasa.SizeOriginal, size)

	s.SetDefaultSize(picasa.SizeMedium)

	size, err = s.PhotoSize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, picasa.SizeMedium, size)
}

func TestPhotoSize_StoredPreferenceWins(t *testing.T) {
	s := newTestStore(t)
	s.SetDefaultSize(picasa.SizeMedium)

	require.NoError(t, s.SetPhotoSize(t.Context(), picasa.SizeSquare))

	size, err := s.PhotoSize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, picasa.SizeSquare, size)

	v, _, err := s.Get(t.Context(), SizeOption)
	require.NoError(t, err)
	assert.Equal(t, "s75", v)
}

func TestPhotoSize_StoredOriginal(t *testing.T) {
	s := newTestStore(t)
	s.SetDefaultSize(picasa.SizeLarge)

	require.NoError(t, s.SetPhotoSize(t.Context(), picasa.SizeOriginal))

	size, err := s.PhotoSize(t.Context())
	require.NoError(t, err)
	assert.Equal(t, picasa.SizeOriginal, size)
}

func TestSetPhotoSize_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	err := s.SetPhotoSize(t.Context(), picasa.Size("s9000"))
	assert.ErrorIs(t, err, picasa.ErrInvalidSize)

	_, ok, err := s.Get(t.Context(), SizeOption)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPhotoSize_CorruptValue(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set(t.Context(), SizeOption, "gigantic"))

	_, err := s.PhotoSize(t.Context())
	assert.ErrorIs(t, err, picasa.ErrInvalidSize)
}

func TestStore_ImplementsInterfaces(t *testing.T) {
	var (
		_ picasa.TokenStore = (*Store)(nil)
		_ picasa.SizeSource = (*Store)(nil)
	)
}
