package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/picasa-silo/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagUser       string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Resolved

// httpClientTimeout is an outer bound on every connection. The API client
// applies its own, shorter per-call deadline.
const httpClientTimeout = time.Minute

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "picasa-silo",
		Short:   "Picasa Web Albums media silo",
		Long:    "Browse, upload to and manage Picasa Web Albums as a virtual directory tree.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagUser, "user", "", "identity the session token is stored under")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newAlbumsCmd())
	cmd.AddCommand(newMkalbumCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newSizeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores it in resolvedCfg.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	if cmd.Flags().Changed("user") {
		cli.User = flagUser
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// logLevel maps the configured level name; --verbose and --quiet win.
func logLevel(cfg *config.Config) slog.Level {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return level
}

// buildLogger creates the process logger writing to stderr. The level is
// read through leveler so serve can change it on config reload.
func buildLogger(leveler slog.Leveler) *slog.Logger {
	format := "auto"
	if resolvedCfg != nil {
		format = resolvedCfg.Logging.LogFormat
	}

	return newLogger(os.Stderr, format, isTerminal(os.Stderr), leveler)
}

// newLogger picks the handler for format. "auto" is text on a terminal and
// JSON otherwise.
func newLogger(w io.Writer, format string, terminal bool, leveler slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: leveler}

	if format == "json" || (format == "auto" && !terminal) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// cliLogger is the logger for one-shot commands.
func cliLogger() *slog.Logger {
	var cfg *config.Config
	if resolvedCfg != nil {
		cfg = &resolvedCfg.Config
	}

	return buildLogger(logLevel(cfg))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
