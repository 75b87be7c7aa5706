package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
	"github.com/tonimelisma/picasa-silo/internal/silo"
)

// grantParam is the query parameter carrying the one-time grant on the
// consent redirect.
const grantParam = "token"

// callbackShutdownTimeout is how long to wait for the callback server to drain.
const callbackShutdownTimeout = 5 * time.Second

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize access to Picasa Web Albums",
		Long: `Authorize access to Picasa Web Albums.

A consent URL is printed. After approving access in the browser, Google
redirects to a temporary local server and the one-time grant is exchanged
for a durable session token.

If the redirect cannot reach this machine, copy the "token" parameter
from the redirect URL and pass it with --grant.`,
		RunE: runLogin,
	}

	cmd.Flags().String("grant", "", "exchange this one-time grant instead of starting the browser flow")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE:  runLogout,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authorization state and configuration",
		RunE:  runStatus,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := shutdownContext(cmd.Context(), cliLogger())
	grant, _ := cmd.Flags().GetString("grant")

	return withSilo(ctx, false, func(_ *backend, s *silo.Silo) error {
		if grant == "" {
			var err error

			grant, err = waitForGrant(ctx, s, cliLogger())
			if err != nil {
				return err
			}
		}

		if err := s.ExchangeGrant(ctx, grant); err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}

		statusf("Authorized as %q.\n", resolvedCfg.User)

		return nil
	})
}

// callbackResult carries the grant or error from the callback handler.
type callbackResult struct {
	grant string
	err   error
}

// waitForGrant starts a localhost callback server, prints the consent URL,
// and blocks until the redirect delivers a grant.
func waitForGrant(ctx context.Context, s *silo.Silo, logger *slog.Logger) (string, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("binding localhost listener: %w", err)
	}

	resultCh := make(chan callbackResult, 1)

	srv := &http.Server{
		Handler:           grantHandler(resultCh),
		ReadHeaderTimeout: callbackShutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("callback server error: %w", serveErr)}
		}
	}()

	defer shutdownServer(srv, logger)

	returnURL := "http://" + listener.Addr().String() + "/"
	logger.Info("callback server listening", slog.String("url", returnURL))

	// The consent prompt must always be visible, even with --quiet.
	fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize access:\n%s\n",
		s.AuthorizationURL(returnURL))

	select {
	case result := <-resultCh:
		return result.grant, result.err
	case <-ctx.Done():
		return "", fmt.Errorf("authorization canceled: %w", ctx.Err())
	}
}

// grantHandler answers the consent redirect and forwards the grant.
func grantHandler(resultCh chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		grant := r.URL.Query().Get(grantParam)
		if grant == "" {
			http.Error(w, "Missing authorization grant", http.StatusBadRequest)
			sendResult(resultCh, callbackResult{err: picasa.ErrMissingGrant})

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>Authorization received</h1>"+
			"<p>You can close this window and return to the terminal.</p></body></html>")
		sendResult(resultCh, callbackResult{grant: grant})
	})

	return mux
}

// sendResult delivers the first result and drops the rest, so repeated
// browser requests (favicon, reloads) never block the handler.
func sendResult(ch chan<- callbackResult, r callbackResult) {
	select {
	case ch <- r:
	default:
	}
}

func shutdownServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown error", slog.String("error", err.Error()))
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withSilo(cmd.Context(), false, func(_ *backend, s *silo.Silo) error {
		if err := s.Deauthorize(cmd.Context()); err != nil {
			return err
		}

		statusf("Session token for %q removed.\n", resolvedCfg.User)

		return nil
	})
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	User         string   `json:"user"`
	Authorized   bool     `json:"authorized"`
	Silo         string   `json:"silo,omitempty"`
	Actions      []string `json:"actions"`
	PhotoSize    string   `json:"photo_size"`
	TokenBackend string   `json:"token_backend"`
	ConfigPath   string   `json:"config_path"`
	DatabasePath string   `json:"database_path"`
	ServerPID    int      `json:"server_pid,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withSilo(ctx, false, func(b *backend, s *silo.Silo) error {
		size, err := b.options.PhotoSize(ctx)
		if err != nil {
			return err
		}

		out := statusOutput{
			User:         resolvedCfg.User,
			Authorized:   s.IsAuthorized(ctx),
			Silo:         s.Info(ctx).Name,
			Actions:      s.Actions(ctx),
			PhotoSize:    sizeLabel(size),
			TokenBackend: resolvedCfg.Storage.TokenBackend,
			ConfigPath:   resolvedCfg.Path,
			DatabasePath: resolvedCfg.Storage.DatabasePath,
			ServerPID:    runningServer(pidFilePath(resolvedCfg.Storage.DatabasePath)),
		}

		if flagJSON {
			return printJSON(os.Stdout, out)
		}

		printStatusText(os.Stdout, out)

		return nil
	})
}

func printStatusText(w io.Writer, out statusOutput) {
	state := "not authorized"
	if out.Authorized {
		state = "authorized"
	}

	fmt.Fprintf(w, "User:       %s (%s)\n", out.User, state)
	fmt.Fprintf(w, "Photo size: %s\n", out.PhotoSize)
	fmt.Fprintf(w, "Tokens:     %s\n", out.TokenBackend)
	fmt.Fprintf(w, "Config:     %s\n", out.ConfigPath)
	fmt.Fprintf(w, "Database:   %s\n", out.DatabasePath)
	fmt.Fprintf(w, "Actions:    %v\n", out.Actions)

	if out.ServerPID != 0 {
		fmt.Fprintf(w, "Server:     running (PID %d)\n", out.ServerPID)
	}
}
