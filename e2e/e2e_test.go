//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/picasa-silo/testutil"
)

const (
	testGrant   = "one-time-grant"
	testSession = "durable-session"
)

var binaryPath string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "picasa-silo-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(tmpDir, "picasa-silo")

	if err := testutil.BuildBinary(testutil.FindModuleRoot(".."), binaryPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// env is one isolated installation: its own config, data directory, and
// fake service.
type env struct {
	fake       *testutil.FakePicasa
	configPath string
	home       string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	fake := testutil.NewFakePicasa(testGrant, testSession)
	t.Cleanup(fake.Close)

	home := t.TempDir()
	configPath := filepath.Join(home, "config.toml")

	cfg := fmt.Sprintf(`[api]
base_url = %q
auth_url = "https://consent.example.com/auth?next="
session_token_url = %q

[storage]
database_path = %q

[logging]
log_format = "text"
`, fake.URL()+testutil.FeedPath, fake.URL()+testutil.SessionPath, filepath.Join(home, "data", "options.db"))

	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))

	return &env{fake: fake, configPath: configPath, home: home}
}

func (e *env) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, append([]string{"--config", e.configPath}, args...)...)
	cmd.Env = append(os.Environ(),
		"HOME="+e.home,
		"XDG_CONFIG_HOME="+filepath.Join(e.home, ".config"),
		"XDG_DATA_HOME="+filepath.Join(e.home, ".local", "share"),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	stdout, stderr, err := e.run(t, args...)
	require.NoError(t, err, "args %v\nstdout: %s\nstderr: %s", args, stdout, stderr)

	return stdout
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)

	return v
}

func TestE2E_RoundTrip(t *testing.T) {
	e := newEnv(t)

	t.Run("status before login", func(t *testing.T) {
		out := decodeJSON[map[string]any](t, e.mustRun(t, "status", "--json"))
		assert.Equal(t, false, out["authorized"])
		assert.Equal(t, "default", out["user"])
	})

	t.Run("ls requires login", func(t *testing.T) {
		_, stderr, err := e.run(t, "ls", "albums")
		require.Error(t, err)
		assert.Contains(t, stderr, "not authorized")
	})

	t.Run("login with grant", func(t *testing.T) {
		e.mustRun(t, "login", "--grant", testGrant)

		out := decodeJSON[map[string]any](t, e.mustRun(t, "status", "--json"))
		assert.Equal(t, true, out["authorized"])
		assert.Equal(t, "Picasa", out["silo"])
	})

	t.Run("root listing", func(t *testing.T) {
		entries := decodeJSON[[]map[string]any](t, e.mustRun(t, "ls", "--json"))
		require.Len(t, entries, 3)
		assert.Equal(t, "Picasa/albums", entries[0]["path"])
	})

	t.Run("create album", func(t *testing.T) {
		e.mustRun(t, "mkalbum", "Trip", "--date", "1/2/2021", "--summary", "Road trip")

		albums := decodeJSON[[]map[string]string](t, e.mustRun(t, "albums", "--json"))
		require.Len(t, albums, 1)
		assert.Equal(t, map[string]string{"id": "100", "title": "Trip"}, albums[0])
	})

	t.Run("album appears in tree", func(t *testing.T) {
		entries := decodeJSON[[]map[string]any](t, e.mustRun(t, "ls", "Picasa/albums", "--json"))
		require.Len(t, entries, 1)
		assert.Equal(t, "Picasa/photos/album/100", entries[0]["path"])
		assert.Equal(t, true, entries[0]["is_container"])
	})

	t.Run("upload", func(t *testing.T) {
		photo := filepath.Join(t.TempDir(), "beach.jpg")
		require.NoError(t, os.WriteFile(photo, []byte("JPEGDATA"), 0o600))

		e.mustRun(t, "upload", "100", photo)

		reqs := e.fake.Requests()
		last := reqs[len(reqs)-1]
		assert.Equal(t, testutil.FeedPath+"/album/100", last.Path)
		assert.Contains(t, last.Body, "Content-Type: image/jpeg")
		assert.Contains(t, last.Body, "<title>beach.jpg</title>")
		assert.Contains(t, last.Body, "JPEGDATA")
	})

	t.Run("photo size", func(t *testing.T) {
		e.mustRun(t, "size", "s240")

		out := decodeJSON[map[string]any](t, e.mustRun(t, "size", "--json"))
		assert.Equal(t, "s240", out["current"])

		_, _, err := e.run(t, "size", "s9999")
		assert.Error(t, err)
	})

	t.Run("logout", func(t *testing.T) {
		e.mustRun(t, "logout")

		out := decodeJSON[map[string]any](t, e.mustRun(t, "status", "--json"))
		assert.Equal(t, false, out["authorized"])

		e.mustRun(t, "logout")
	})
}

func TestE2E_LoginRejectedGrant(t *testing.T) {
	e := newEnv(t)

	_, stderr, err := e.run(t, "login", "--grant", "wrong")
	require.Error(t, err)
	assert.Contains(t, stderr, "authorization failed")

	out := decodeJSON[map[string]any](t, e.mustRun(t, "status", "--json"))
	assert.Equal(t, false, out["authorized"])
}

func TestE2E_IdentitiesAreSeparate(t *testing.T) {
	e := newEnv(t)

	e.mustRun(t, "--user", "alice", "login", "--grant", testGrant)

	alice := decodeJSON[map[string]any](t, e.mustRun(t, "--user", "alice", "status", "--json"))
	bob := decodeJSON[map[string]any](t, e.mustRun(t, "--user", "bob", "status", "--json"))

	assert.Equal(t, true, alice["authorized"])
	assert.Equal(t, false, bob["authorized"])
}

func TestE2E_FileTokenBackend(t *testing.T) {
	e := newEnv(t)

	data, err := os.ReadFile(e.configPath)
	require.NoError(t, err)

	tokenDir := filepath.Join(e.home, "tokens")
	cfg := strings.Replace(string(data), "[storage]\n",
		fmt.Sprintf("[storage]\ntoken_backend = \"file\"\ntoken_dir = %q\n", tokenDir), 1)
	require.NoError(t, os.WriteFile(e.configPath, []byte(cfg), 0o600))

	e.mustRun(t, "login", "--grant", testGrant)

	files, err := os.ReadDir(tokenDir)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	out := decodeJSON[map[string]any](t, e.mustRun(t, "status", "--json"))
	assert.Equal(t, true, out["authorized"])
	assert.Equal(t, "file", out["token_backend"])
}

func TestE2E_UnknownConfigKey(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, os.WriteFile(e.configPath, []byte("[silo]\nphoto_sise = \"s75\"\n"), 0o600))

	_, stderr, err := e.run(t, "status")
	require.Error(t, err)
	assert.Contains(t, stderr, `did you mean "photo_size"`)
}
