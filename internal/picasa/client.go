package picasa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// RequestTimeout bounds every outbound call, including reading the body.
	RequestTimeout = 30 * time.Second
	userAgent      = "picasa-silo/0.1"

	// maxErrorBody caps how much of a failed response is kept in APIError.
	maxErrorBody = 512
)

// TokenSource provides the stored AuthSub session token for the current
// identity. An empty token with a nil error means "not authorized"; the
// call is still attempted and the service decides.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// contentLengther is implemented by request bodies that know their size up
// front but are not one of the reader types net/http sizes on its own.
type contentLengther interface {
	ContentLength() int64
}

// Client executes authorized requests against the Picasa data API and
// parses the XML responses. It never retries and never caches.
type Client struct {
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	timeout    time.Duration
}

// NewClient creates a Picasa API client. A nil httpClient uses
// http.DefaultClient; the per-call timeout is applied independently.
func NewClient(httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		timeout:    RequestTimeout,
	}
}

// Call sends one request to endpoint and returns the parsed response
// document. headers are added verbatim, keeping their exact casing.
// Failures are returned as *APIError wrapping one of the sentinel errors.
func (c *Client) Call(
	ctx context.Context, method, endpoint string, headers map[string]string, body io.Reader,
) (*Node, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	if u, err := url.Parse(endpoint); err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, endpoint)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, endpoint, headers, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("url", endpoint),
			slog.String("error", err.Error()),
		)

		// The upload guard aborted the body; keep its sentinel.
		sentinel := ErrTransportFailure
		if errors.Is(err, ErrBoundaryCollision) {
			sentinel = ErrBoundaryCollision
		}

		return nil, &APIError{Message: err.Error(), Err: sentinel}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("reading response body failed",
			slog.String("method", method),
			slog.String("url", endpoint),
			slog.String("error", err.Error()),
		)

		return nil, &APIError{StatusCode: resp.StatusCode, Message: err.Error(), Err: ErrTransportFailure}
	}

	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("request rejected",
			slog.String("method", method),
			slog.String("url", endpoint),
			slog.Int("status", resp.StatusCode),
		)

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(data), maxErrorBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &APIError{Err: ErrEmptyResponse}
	}

	doc, err := ParseDocument(bytes.NewReader(data))
	if err != nil {
		// Parse internals stay in the debug log; callers only see
		// "service temporarily unreachable".
		c.logger.Debug("unparseable response",
			slog.String("url", endpoint),
			slog.String("error", err.Error()),
		)

		return nil, &APIError{Err: ErrMalformedResponse}
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("url", endpoint),
		slog.Int("status", resp.StatusCode),
	)

	return doc, nil
}

// newRequest builds the HTTP request with the AuthSub header and any
// caller-supplied headers.
func (c *Client) newRequest(
	ctx context.Context, method, endpoint string, headers map[string]string, body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("picasa: creating request: %w", err)
	}

	if cl, ok := body.(contentLengther); ok {
		req.ContentLength = cl.ContentLength()
	}

	if c.token != nil {
		tok, err := c.token.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("picasa: obtaining token: %w", err)
		}

		if tok != "" {
			req.Header.Set("Authorization", authSubHeader(tok))
		}
	}

	req.Header.Set("User-Agent", userAgent)

	// Direct map assignment keeps header names such as "MIME-version"
	// exactly as the service documents them.
	for k, v := range headers {
		req.Header[k] = []string{v}
	}

	return req, nil
}

// authSubHeader formats the Authorization value for a session token.
func authSubHeader(token string) string {
	return "AuthSub token=" + token
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
