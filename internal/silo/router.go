// Package silo exposes the Picasa photo service to a host application as a
// virtual directory tree: a stateless path router over picasa.PhotoService
// plus the facade the host plugin contract calls into.
package silo

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
)

// DirectoryEntry is re-exported so hosts need not import the picasa package.
type DirectoryEntry = picasa.DirectoryEntry

// Top-level branches of the virtual tree.
const (
	branchAlbums = "albums"
	branchPhotos = "photos"
	branchRecent = "recent"
	branchTags   = "tags"

	photosByAlbum = "album"
	photosByTag   = "tag"
)

// Lister is the subset of picasa.PhotoService the router needs.
type Lister interface {
	ListAlbums(ctx context.Context) ([]picasa.DirectoryEntry, error)
	ListPhotos(ctx context.Context, filter picasa.PhotoFilter) ([]picasa.DirectoryEntry, error)
	ListTags(ctx context.Context) ([]picasa.DirectoryEntry, error)
}

// Router maps virtual paths to listing calls. It keeps no state between
// calls and never re-sorts what the service returns.
type Router struct {
	photos Lister
	logger *slog.Logger
}

// NewRouter creates a Router over photos.
func NewRouter(photos Lister, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{photos: photos, logger: logger}
}

// rootEntries are the synthetic containers shown at the silo root.
func rootEntries() []DirectoryEntry {
	return []DirectoryEntry{
		rootEntry(branchAlbums, "Albums"),
		rootEntry(branchRecent, "Recently Uploaded"),
		rootEntry(branchTags, "Tags"),
	}
}

func rootEntry(branch, title string) DirectoryEntry {
	return DirectoryEntry{
		Path:        picasa.SiloName + "/" + branch,
		IsContainer: true,
		Title:       title,
		Properties:  map[string]string{picasa.PropTitle: title},
	}
}

// List returns the entries under path, relative to the silo root
// ("" or "/" is the root). Unknown paths list as empty, not as errors.
// Errors from the photo service are returned unchanged.
func (r *Router) List(ctx context.Context, path string) ([]DirectoryEntry, error) {
	clean := cleanPath(path)
	if clean == "" {
		return rootEntries(), nil
	}

	segments := strings.Split(clean, "/")

	r.logger.Debug("routing listing", slog.String("path", clean))

	switch segments[0] {
	case branchAlbums:
		return r.photos.ListAlbums(ctx)
	case branchPhotos:
		filter, ok := photoFilter(segments[1:])
		if !ok {
			return empty(), nil
		}

		return r.photos.ListPhotos(ctx, filter)
	case branchRecent:
		return r.photos.ListPhotos(ctx, picasa.PhotoFilter{})
	case branchTags:
		return r.photos.ListTags(ctx)
	default:
		return empty(), nil
	}
}

// photoFilter parses "album/<id>" or "tag/<tag>".
func photoFilter(segments []string) (picasa.PhotoFilter, bool) {
	if len(segments) < 2 || segments[1] == "" {
		return picasa.PhotoFilter{}, false
	}

	value, err := picasa.UnescapeSegment(segments[1])
	if err != nil || value == "" {
		return picasa.PhotoFilter{}, false
	}

	switch segments[0] {
	case photosByAlbum:
		return picasa.PhotoFilter{AlbumID: value}, true
	case photosByTag:
		return picasa.PhotoFilter{Tag: value}, true
	default:
		return picasa.PhotoFilter{}, false
	}
}

// cleanPath strips leading and trailing slashes; "" is the root.
func cleanPath(path string) string {
	return strings.Trim(path, "/")
}

// RelativePath strips the silo name from a host-facing entry path so it
// can be passed back to List.
func RelativePath(path string) string {
	clean := cleanPath(path)
	if clean == picasa.SiloName {
		return ""
	}

	return strings.TrimPrefix(clean, picasa.SiloName+"/")
}

func empty() []DirectoryEntry {
	return []DirectoryEntry{}
}
