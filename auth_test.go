package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
)

func TestGrantHandler_DeliversGrant(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	h := grantHandler(resultCh)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?token=abc%3D%3D", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization received")

	result := <-resultCh
	require.NoError(t, result.err)
	assert.Equal(t, "abc==", result.grant)
}

func TestGrantHandler_MissingGrant(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	h := grantHandler(resultCh)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.ErrorIs(t, (<-resultCh).err, picasa.ErrMissingGrant)
}

func TestGrantHandler_RepeatRequestsDoNotBlock(t *testing.T) {
	resultCh := make(chan callbackResult, 1)
	h := grantHandler(resultCh)

	for _, target := range []string{"/?token=first", "/favicon.ico", "/?token=second"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, "first", (<-resultCh).grant)
	assert.Empty(t, resultCh)
}

func TestGrantHandler_RejectsPost(t *testing.T) {
	h := grantHandler(make(chan callbackResult, 1))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/?token=x", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPrintStatusText(t *testing.T) {
	var buf bytes.Buffer

	printStatusText(&buf, statusOutput{
		User:         "alice",
		Authorized:   true,
		Actions:      []string{"De-Authorize", "Configure"},
		PhotoSize:    "Medium (500px)",
		TokenBackend: "sqlite",
		ConfigPath:   "/cfg/config.toml",
		DatabasePath: "/data/options.db",
		ServerPID:    77,
	})

	out := buf.String()
	assert.Contains(t, out, "User:       alice (authorized)")
	assert.Contains(t, out, "Photo size: Medium (500px)")
	assert.Contains(t, out, "Actions:    [De-Authorize Configure]")
	assert.Contains(t, out, "Server:     running (PID 77)")
}

func TestPrintStatusText_NoServer(t *testing.T) {
	var buf bytes.Buffer

	printStatusText(&buf, statusOutput{User: "bob"})

	assert.Contains(t, buf.String(), "User:       bob (not authorized)")
	assert.NotContains(t, buf.String(), "Server:")
}
