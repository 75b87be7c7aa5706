package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
	"github.com/tonimelisma/picasa-silo/internal/silo"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List the virtual directory tree",
		Long: `List a directory of the virtual tree. Paths are relative to the silo
root and may include the "Picasa/" prefix shown in listings:

  ls                       albums, recent uploads and tags
  ls albums                all albums
  ls Picasa/photos/album/42 photos in album 42
  ls photos/tag/beach      photos tagged "beach"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLs,
	}
}

func newAlbumsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "albums",
		Short: "List album ids and titles for upload",
		Args:  cobra.NoArgs,
		RunE:  runAlbums,
	}
}

func newMkalbumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkalbum <name>",
		Short: "Create an album",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkalbum,
	}

	cmd.Flags().String("summary", "", "album description")
	cmd.Flags().String("location", "", "where the photos were taken")
	cmd.Flags().String("visibility", picasa.VisibilityPublic, "public, private (anyone with the link) or protected (owner only)")
	cmd.Flags().String("date", "", "album date as day/month/year (default today)")
	cmd.Flags().String("keywords", "", "comma-separated keywords")

	return cmd
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <album-id> <file>",
		Short: "Upload a photo into an album",
		Args:  cobra.ExactArgs(2),
		RunE:  runUpload,
	}

	cmd.Flags().String("title", "", "photo title (default file name)")
	cmd.Flags().String("summary", "", "photo caption")

	return cmd
}

// lsEntry is the JSON schema for `ls --json`.
type lsEntry struct {
	Path        string            `json:"path"`
	IsContainer bool              `json:"is_container"`
	Title       string            `json:"title"`
	Properties  map[string]string `json:"properties,omitempty"`
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := ""
	if len(args) > 0 {
		path = silo.RelativePath(args[0])
	}

	return withSilo(ctx, true, func(_ *backend, s *silo.Silo) error {
		entries, err := s.ListDirectory(ctx, path)
		if err != nil {
			return friendlyError(err)
		}

		if flagJSON {
			out := make([]lsEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, lsEntry(e))
			}

			return printJSON(os.Stdout, out)
		}

		printEntries(os.Stdout, entries)

		return nil
	})
}

// printEntries renders a listing as a table; photos show their sized URL.
func printEntries(w io.Writer, entries []silo.DirectoryEntry) {
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		kind, detail := "dir", ""
		if !e.IsContainer {
			kind, detail = "photo", e.Properties[picasa.PropFullURL]
		}

		rows = append(rows, []string{kind, e.Title, e.Path, detail})
	}

	printTable(w, []string{"TYPE", "TITLE", "PATH", "URL"}, rows)
}

func runAlbums(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withSilo(ctx, true, func(_ *backend, s *silo.Silo) error {
		albums, err := s.AlbumChoices(ctx)
		if err != nil {
			return friendlyError(err)
		}

		if flagJSON {
			out := make([]albumChoice, 0, len(albums))
			for _, a := range albums {
				out = append(out, albumChoice(a))
			}

			return printJSON(os.Stdout, out)
		}

		rows := make([][]string, 0, len(albums))
		for _, a := range albums {
			rows = append(rows, []string{a.ID, a.Title})
		}

		printTable(os.Stdout, []string{"ID", "TITLE"}, rows)

		return nil
	})
}

func runMkalbum(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	spec := picasa.AlbumSpec{Name: args[0]}
	spec.Summary, _ = flags.GetString("summary")
	spec.Location, _ = flags.GetString("location")
	spec.Visibility, _ = flags.GetString("visibility")
	spec.Date, _ = flags.GetString("date")
	spec.Keywords, _ = flags.GetString("keywords")

	if err := validateVisibility(spec.Visibility); err != nil {
		return err
	}

	if spec.Date == "" {
		spec.Date = today()
	}

	return withSilo(ctx, true, func(_ *backend, s *silo.Silo) error {
		if err := s.CreateAlbum(ctx, spec); err != nil {
			return friendlyError(err)
		}

		statusf("Created album %q.\n", spec.Name)

		return nil
	})
}

func validateVisibility(v string) error {
	for _, o := range picasa.VisibilityOptions {
		if o.Value == v {
			return nil
		}
	}

	return fmt.Errorf("invalid visibility %q: must be public, private or protected", v)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	albumID, localPath := args[0], args[1]

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory", localPath)
	}

	spec := picasa.UploadSpec{
		Source:      f,
		Size:        info.Size(),
		AlbumID:     albumID,
		ContentType: imageContentType(localPath),
	}
	spec.Title, _ = cmd.Flags().GetString("title")
	spec.Summary, _ = cmd.Flags().GetString("summary")

	if spec.Title == "" {
		spec.Title = filepath.Base(localPath)
	}

	return withSilo(ctx, true, func(_ *backend, s *silo.Silo) error {
		if err := s.UploadPhoto(ctx, spec); err != nil {
			return friendlyError(err)
		}

		statusf("Uploaded %s to album %s.\n", spec.Title, albumID)

		return nil
	})
}

// imageContentType guesses the part type from the file extension. Unknown
// or non-image types fall back to the upload default.
func imageContentType(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if strings.HasPrefix(t, "image/") {
		return t
	}

	return ""
}

// today formats the current local date as day/month/year.
func today() string {
	now := time.Now()

	return fmt.Sprintf("%d/%d/%d", now.Day(), int(now.Month()), now.Year())
}
