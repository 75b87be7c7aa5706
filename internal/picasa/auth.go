package picasa

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthSub endpoints. The consent URL carries a fixed scope and expects the
// return URL appended raw-url-encoded after "next=".
const (
	DefaultAuthURL = "https://www.google.com/accounts/AuthSubRequest" +
		"?scope=http%3A%2F%2Fpicasaweb.google.com%2Fdata%2F&session=1&secure=0&next="
	DefaultSessionTokenURL = "https://www.google.com/accounts/AuthSubSessionToken"
)

// sessionTokenKey is the key of the durable token in the exchange response.
const sessionTokenKey = "Token"

// TokenStore persists one AuthSub session token per user identity.
// LoadToken returns "" with a nil error when no token is stored.
// DeleteToken must succeed when nothing is stored.
type TokenStore interface {
	LoadToken(ctx context.Context, identity string) (string, error)
	SaveToken(ctx context.Context, identity, token string) error
	DeleteToken(ctx context.Context, identity string) error
}

// AuthEndpoints overrides the AuthSub endpoints. Empty fields use defaults.
type AuthEndpoints struct {
	AuthURL         string
	SessionTokenURL string
}

// AuthFlow drives AuthSub authorization for a single identity:
// Unauthorized -> PendingGrant (user sent to the consent URL) -> Authorized
// (session token stored). Construct one per request or session; it holds
// no cached authorization state.
type AuthFlow struct {
	identity   string
	store      TokenStore
	httpClient *http.Client
	logger     *slog.Logger
	endpoints  AuthEndpoints
	timeout    time.Duration
}

// NewAuthFlow creates an AuthFlow for identity backed by store.
func NewAuthFlow(
	identity string, store TokenStore, httpClient *http.Client, endpoints AuthEndpoints, logger *slog.Logger,
) *AuthFlow {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if endpoints.AuthURL == "" {
		endpoints.AuthURL = DefaultAuthURL
	}

	if endpoints.SessionTokenURL == "" {
		endpoints.SessionTokenURL = DefaultSessionTokenURL
	}

	return &AuthFlow{
		identity:   identity,
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		endpoints:  endpoints,
		timeout:    RequestTimeout,
	}
}

// Identity returns the user identity this flow is scoped to.
func (a *AuthFlow) Identity() string {
	return a.identity
}

// AuthorizationURL returns the consent URL that sends the user back to
// returnURL with a one-time grant in the "token" query parameter.
func (a *AuthFlow) AuthorizationURL(returnURL string) string {
	return a.endpoints.AuthURL + rawURLEncode(returnURL)
}

// ExchangeGrant trades a one-time grant for a durable session token and
// stores it. Nothing is stored unless the whole exchange succeeds.
func (a *AuthFlow) ExchangeGrant(ctx context.Context, grant string) error {
	if grant == "" {
		return ErrMissingGrant
	}

	a.logger.Info("exchanging grant for session token",
		slog.String("identity", a.identity),
	)

	token, err := a.requestSessionToken(ctx, grant)
	if err != nil {
		a.logger.Warn("grant exchange failed",
			slog.String("identity", a.identity),
			slog.String("error", err.Error()),
		)

		return err
	}

	if err := a.store.SaveToken(ctx, a.identity, token); err != nil {
		return fmt.Errorf("picasa: saving session token: %w", err)
	}

	a.logger.Info("authorization successful", slog.String("identity", a.identity))

	return nil
}

// requestSessionToken performs the exchange call. The endpoint answers with
// key=value lines rather than XML, so it does not go through Client.Call.
func (a *AuthFlow) requestSessionToken(ctx context.Context, grant string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.SessionTokenURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("picasa: creating exchange request: %w", err)
	}

	req.Header.Set("Authorization", `AuthSub token="`+grant+`"`)
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &APIError{Message: err.Error(), Err: ErrTransportFailure}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: err.Error(), Err: ErrTransportFailure}
	}

	if !isSuccess(resp.StatusCode) {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(data), maxErrorBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return "", &APIError{Err: ErrEmptyResponse}
	}

	token := parseSessionToken(data)
	if token == "" {
		return "", &APIError{Message: "no session token in exchange response", Err: ErrMalformedResponse}
	}

	return token, nil
}

// parseSessionToken extracts the Token value from a key=value body.
// Only the first "=" splits, so tokens containing "=" survive intact.
func parseSessionToken(body []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}

		if strings.EqualFold(strings.TrimSpace(key), sessionTokenKey) {
			return strings.TrimSpace(value)
		}
	}

	return ""
}

// Deauthorize deletes the stored token. Safe to call in any state.
func (a *AuthFlow) Deauthorize(ctx context.Context) error {
	if err := a.store.DeleteToken(ctx, a.identity); err != nil {
		return fmt.Errorf("picasa: deleting session token: %w", err)
	}

	a.logger.Info("deauthorized", slog.String("identity", a.identity))

	return nil
}

// IsAuthorized reports whether a session token is stored for the identity.
// It reads the store on every call. A store failure reads as unauthorized.
func (a *AuthFlow) IsAuthorized(ctx context.Context) bool {
	tok, err := a.store.LoadToken(ctx, a.identity)
	if err != nil {
		a.logger.Warn("token lookup failed",
			slog.String("identity", a.identity),
			slog.String("error", err.Error()),
		)

		return false
	}

	return tok != ""
}

// Token implements TokenSource.
func (a *AuthFlow) Token(ctx context.Context) (string, error) {
	return a.store.LoadToken(ctx, a.identity)
}

// rawURLEncode percent-encodes everything except unreserved characters,
// encoding spaces as %20 rather than "+".
func rawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
