// Package picasa provides an HTTP client for the Picasa Web Albums data API:
// AuthSub authorization, Atom/RSS feed retrieval, album creation and photo
// upload.
package picasa

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for remote call classification.
// Use errors.Is(err, picasa.ErrUnauthorized) to check.
var (
	ErrTransportFailure  = errors.New("picasa: transport failure")
	ErrEmptyResponse     = errors.New("picasa: empty response")
	ErrMalformedResponse = errors.New("picasa: service temporarily unreachable")
	ErrUnauthorized      = errors.New("picasa: unauthorized")
)

// Local validation errors. These never reach the network.
var (
	ErrInvalidMethod = errors.New("picasa: unsupported HTTP method")
	ErrInvalidURL    = errors.New("picasa: endpoint must be an absolute URL")
	ErrInvalidDate   = errors.New("picasa: album date must be day/month/year")
	ErrMissingAlbum  = errors.New("picasa: album id is required")
	ErrMissingGrant  = errors.New("picasa: grant code is required")
)

// APIError wraps a sentinel error with the HTTP status code and a short
// message describing the failed call.
type APIError struct {
	StatusCode int    // 0 when no response was received
	Message    string // never contains parse internals or token values
	Err        error  // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (HTTP %d): %s", e.Err, e.StatusCode, e.Message)
	}

	if e.Message == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%v: %s", e.Err, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx HTTP status code to a sentinel error.
// The service signals a rejected or revoked token with 401 or 403.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrTransportFailure
	}
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
