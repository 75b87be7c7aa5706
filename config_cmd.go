package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/picasa-silo/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfig(os.Stdout, resolvedCfg)
		},
	})

	return cmd
}

// configOutput is the JSON schema for `config show --json`.
type configOutput struct {
	Path   string         `json:"path"`
	User   string         `json:"user"`
	Config *config.Config `json:"config"`
}

// showConfig writes the effective configuration as TOML, the same format
// the file is written in, or as JSON with --json.
func showConfig(w io.Writer, resolved *config.Resolved) error {
	if resolved == nil {
		return errors.New("no configuration loaded")
	}

	if flagJSON {
		return printJSON(w, configOutput{Path: resolved.Path, User: resolved.User, Config: &resolved.Config})
	}

	fmt.Fprintf(w, "# config file: %s\n# user: %s\n\n", resolved.Path, resolved.User)

	if err := toml.NewEncoder(w).Encode(resolved.Config); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}
