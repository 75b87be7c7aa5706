package picasa

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Feed endpoints.
const (
	DefaultBaseURL  = "https://picasaweb.google.com/data/feed/api/user/default"
	InsecureBaseURL = "http://picasaweb.google.com/data/feed/api/user/default"
)

// Result caps. The service pages beyond these; the silo does not.
const (
	DefaultAlbumResults = 1000
	recentPhotoResults  = 10
)

// recentSegment names the recent-uploads view inside photo leaf paths.
const recentSegment = "recent"

// SizeSource supplies the rendition size applied to photo URLs.
type SizeSource interface {
	PhotoSize(ctx context.Context) (Size, error)
}

// PhotoService implements the silo's remote capabilities on top of Client
// and translates feed documents into DirectoryEntry values.
type PhotoService struct {
	client       *Client
	baseURL      string
	sizes        SizeSource
	albumResults int
	location     *time.Location
	logger       *slog.Logger
}

// NewPhotoService creates a PhotoService. An empty baseURL uses
// DefaultBaseURL; a nil sizes source serves original-size URLs.
func NewPhotoService(client *Client, baseURL string, sizes SizeSource, logger *slog.Logger) *PhotoService {
	if logger == nil {
		logger = slog.Default()
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &PhotoService{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		sizes:        sizes,
		albumResults: DefaultAlbumResults,
		location:     time.Local,
		logger:       logger,
	}
}

// SetAlbumResults overrides the album feed result cap. Values below 1 are
// ignored.
func (s *PhotoService) SetAlbumResults(n int) {
	if n > 0 {
		s.albumResults = n
	}
}

// Albums returns the user's albums in feed order. Items without an album
// id cannot be navigated and are skipped.
func (s *PhotoService) Albums(ctx context.Context) ([]Album, error) {
	endpoint := s.baseURL + "?kind=album&alt=rss&max-results=" + strconv.Itoa(s.albumResults) + "&prettyprint=true"

	doc, err := s.client.Call(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	channel := SelectInNamespace(doc, "", "channel")
	items := SelectAllInNamespace(channel, "", "item")
	albums := make([]Album, 0, len(items))

	for _, item := range items {
		id := SelectInNamespace(item, NamespaceGPhoto, "id").Text()
		if id == "" {
			s.logger.Warn("skipping album without id",
				slog.String("title", SelectInNamespace(item, "", "title").Text()),
			)

			continue
		}

		albums = append(albums, Album{
			ID:    id,
			Title: SelectInNamespace(item, "", "title").Text(),
		})
	}

	s.logger.Debug("listed albums", slog.Int("count", len(albums)))

	return albums, nil
}

// ListAlbums returns one container entry per album.
func (s *PhotoService) ListAlbums(ctx context.Context) ([]DirectoryEntry, error) {
	albums, err := s.Albums(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]DirectoryEntry, 0, len(albums))
	for _, a := range albums {
		entries = append(entries, containerEntry(AlbumPath(a.ID), a.Title))
	}

	return entries, nil
}

// ListPhotos returns one leaf entry per photo matching filter. The size
// preference is read once and applied to every photo in the listing.
func (s *PhotoService) ListPhotos(ctx context.Context, filter PhotoFilter) ([]DirectoryEntry, error) {
	endpoint, segment := s.photosEndpoint(filter)

	size, err := s.photoSize(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.client.Call(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	prefix := SiloName + "/photos/" + escapeSegment(segment) + "/"
	feedEntries := SelectAllInNamespace(doc, NamespaceAtom, "entry")
	entries := make([]DirectoryEntry, 0, len(feedEntries))
	names := newLeafNamer()

	for _, fe := range feedEntries {
		group := SelectInNamespace(fe, NamespaceMedia, "group")
		title := SelectInNamespace(group, NamespaceMedia, "title").Text()
		src := SelectInNamespace(fe, NamespaceAtom, "content").Attr("src")
		id := SelectInNamespace(fe, NamespaceGPhoto, "id").Text()

		entries = append(entries, DirectoryEntry{
			Path:  prefix + names.name(title, id),
			Title: title,
			Properties: map[string]string{
				PropFileType:     FileType,
				PropTitle:        title,
				PropThumbnailURL: SelectInNamespace(group, NamespaceMedia, "thumbnail").Attr("url"),
				PropFullURL:      SizedURL(src, size),
				PropSourceURL:    src,
			},
		})
	}

	s.logger.Debug("listed photos",
		slog.String("album_id", filter.AlbumID),
		slog.String("tag", filter.Tag),
		slog.Int("count", len(entries)),
	)

	return entries, nil
}

// photosEndpoint picks the query shape for filter and the path segment its
// photos are listed under.
func (s *PhotoService) photosEndpoint(filter PhotoFilter) (string, string) {
	switch {
	case filter.AlbumID != "":
		return s.baseURL + "/albumid/" + url.PathEscape(filter.AlbumID) + "?prettyprint=true", filter.AlbumID
	case filter.Tag != "":
		return s.baseURL + "?kind=photo&tag=" + url.QueryEscape(filter.Tag) + "&prettyprint=true", filter.Tag
	default:
		return s.baseURL + "?kind=photo&max-results=" + strconv.Itoa(recentPhotoResults), recentSegment
	}
}

func (s *PhotoService) photoSize(ctx context.Context) (Size, error) {
	if s.sizes == nil {
		return SizeOriginal, nil
	}

	size, err := s.sizes.PhotoSize(ctx)
	if err != nil {
		return "", fmt.Errorf("picasa: reading photo size: %w", err)
	}

	return size, nil
}

// ListTags returns one container entry per tag.
func (s *PhotoService) ListTags(ctx context.Context) ([]DirectoryEntry, error) {
	doc, err := s.client.Call(ctx, http.MethodGet, s.baseURL+"?kind=tag", nil, nil)
	if err != nil {
		return nil, err
	}

	feedEntries := SelectAllInNamespace(doc, NamespaceAtom, "entry")
	entries := make([]DirectoryEntry, 0, len(feedEntries))
	seen := make(map[string]bool, len(feedEntries))

	for _, fe := range feedEntries {
		tag := SelectInNamespace(fe, NamespaceAtom, "title").Text()
		if tag == "" || seen[tag] {
			continue
		}

		seen[tag] = true
		entries = append(entries, containerEntry(SiloName+"/photos/tag/"+escapeSegment(tag), tag))
	}

	return entries, nil
}

// CreateAlbum creates an album from spec.
func (s *PhotoService) CreateAlbum(ctx context.Context, spec AlbumSpec) error {
	body, err := buildAlbumEntry(spec, s.location)
	if err != nil {
		return err
	}

	s.logger.Info("creating album", slog.String("name", spec.Name))

	_, err = s.client.Call(ctx, http.MethodPost, s.baseURL,
		map[string]string{contentTypeHeader: atomContentType},
		bytes.NewReader(body))
	if err != nil {
		return err
	}

	s.logger.Info("album created", slog.String("name", spec.Name))

	return nil
}

// UploadPhoto uploads spec.Source into the album spec.AlbumID. A failed
// upload must be retried in full.
func (s *PhotoService) UploadPhoto(ctx context.Context, spec UploadSpec) error {
	if spec.AlbumID == "" {
		return ErrMissingAlbum
	}

	body, err := buildUploadBody(spec)
	if err != nil {
		return err
	}

	s.logger.Info("uploading photo",
		slog.String("album_id", spec.AlbumID),
		slog.String("title", spec.Title),
		slog.Int64("size", spec.Size),
	)

	// Uploads go to /album/<id>; listings read /albumid/<id>.
	_, err = s.client.Call(ctx, http.MethodPost, s.baseURL+"/album/"+url.PathEscape(spec.AlbumID),
		map[string]string{
			contentTypeHeader: uploadContentType,
			mimeVersionHeader: uploadMIMEVersion,
		},
		body)
	if err != nil {
		return err
	}

	s.logger.Info("photo uploaded", slog.String("album_id", spec.AlbumID))

	return nil
}

// SizedURL requests a specific rendition of a photo by inserting size as a
// path segment before the file name. SizeOriginal and URLs without a path
// separator are returned unchanged.
func SizedURL(src string, size Size) string {
	if size == SizeOriginal {
		return src
	}

	i := strings.LastIndex(src, "/")
	if i < 0 {
		return src
	}

	return src[:i] + "/" + string(size) + src[i:]
}

// AlbumPath is the host-facing container path of an album.
func AlbumPath(id string) string {
	return SiloName + "/photos/album/" + escapeSegment(id)
}

func containerEntry(path, title string) DirectoryEntry {
	return DirectoryEntry{
		Path:        path,
		IsContainer: true,
		Title:       title,
		Properties:  map[string]string{PropTitle: title},
	}
}

// escapeSegment makes a remote name safe to use as one path segment.
// Names are NFC-normalized; "%" and "/" are percent-encoded so
// UnescapeSegment restores the original.
func escapeSegment(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "%", "%25")

	return strings.ReplaceAll(s, "/", "%2F")
}

// UnescapeSegment reverses escapeSegment.
func UnescapeSegment(s string) (string, error) {
	return url.PathUnescape(s)
}

// leafNamer hands out unique leaf names within one listing.
type leafNamer struct {
	used map[string]bool
}

func newLeafNamer() *leafNamer {
	return &leafNamer{used: make(map[string]bool)}
}

// name returns the escaped title, falling back to the photo id when the
// title is empty and appending the id (or an ordinal) on collision.
func (n *leafNamer) name(title, id string) string {
	base := title
	if base == "" {
		base = id
	}

	candidate := escapeSegment(base)
	if !n.used[candidate] && candidate != "" {
		n.used[candidate] = true
		return candidate
	}

	if id != "" && base != id {
		candidate = escapeSegment(base + "-" + id)
		if !n.used[candidate] {
			n.used[candidate] = true
			return candidate
		}
	}

	for i := 2; ; i++ {
		candidate = escapeSegment(base + "-" + strconv.Itoa(i))
		if !n.used[candidate] {
			n.used[candidate] = true
			return candidate
		}
	}
}
