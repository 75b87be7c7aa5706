package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
	"github.com/tonimelisma/picasa-silo/internal/silo"
)

func newSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size [token]",
		Short: "Show or set the photo size used in listings",
		Long: `Show or set the rendition size applied to full photo URLs in listings.

Without an argument, the current setting and all choices are shown. Pass
one of the tokens (s75, s100, s240, s500, s1024) or "original" to change it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSize,
	}
}

// sizeOutput is the JSON schema for `size --json`.
type sizeOutput struct {
	Current string          `json:"current"`
	Options []picasa.Option `json:"options"`
}

func runSize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withSilo(ctx, false, func(b *backend, _ *silo.Silo) error {
		if len(args) == 1 {
			size, err := parseSizeArg(args[0])
			if err != nil {
				return err
			}

			if err := b.options.SetPhotoSize(ctx, size); err != nil {
				return err
			}

			statusf("Photo size set to %s.\n", sizeLabel(size))

			return nil
		}

		current, err := b.options.PhotoSize(ctx)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(os.Stdout, sizeOutput{Current: string(current), Options: picasa.SizeOptions})
		}

		rows := make([][]string, 0, len(picasa.SizeOptions))
		for _, o := range picasa.SizeOptions {
			mark := ""
			if o.Value == string(current) {
				mark = "*"
			}

			rows = append(rows, []string{mark, sizeToken(o.Value), o.Label})
		}

		printTable(os.Stdout, []string{"", "TOKEN", "SIZE"}, rows)

		return nil
	})
}

// originalToken names SizeOriginal on the command line, where an empty
// argument is awkward to type.
const originalToken = "original"

func sizeToken(value string) string {
	if value == string(picasa.SizeOriginal) {
		return originalToken
	}

	return value
}

func parseSizeArg(arg string) (picasa.Size, error) {
	if arg == originalToken {
		return picasa.SizeOriginal, nil
	}

	size, err := picasa.ParseSize(arg)
	if err != nil {
		return "", fmt.Errorf("%w (choose s75, s100, s240, s500, s1024 or original)", err)
	}

	return size, nil
}
