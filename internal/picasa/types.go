package picasa

import (
	"errors"
	"fmt"
	"io"
)

// SiloName prefixes every DirectoryEntry path produced by this package.
const SiloName = "Picasa"

// FileType marks photo entries so the host picks the Picasa renderer.
const FileType = "picasa"

// DirectoryEntry property keys.
const (
	PropTitle        = "title"
	PropThumbnailURL = "thumbnailUrl"
	PropFullURL      = "fullUrl"
	PropSourceURL    = "sourceUrl"
	PropFileType     = "fileType"
)

// DirectoryEntry is the uniform listing model handed to the host. Containers
// (albums, tags, synthetic roots) are navigable; leaves are photos.
type DirectoryEntry struct {
	Path        string
	IsContainer bool
	Title       string
	Properties  map[string]string
}

// Album is one album from the album feed.
type Album struct {
	ID    string
	Title string
}

// PhotoFilter selects which photos ListPhotos returns. The zero value lists
// the most recent uploads; AlbumID takes precedence over Tag.
type PhotoFilter struct {
	AlbumID string
	Tag     string
}

// Album visibility values accepted by the service for gphoto:access.
const (
	VisibilityPublic    = "public"
	VisibilityPrivate   = "private"   // anyone with the link
	VisibilityProtected = "protected" // owner only
)

// VisibilityOptions maps each visibility value to its form label.
var VisibilityOptions = []Option{
	{Value: VisibilityPublic, Label: "Public"},
	{Value: VisibilityPrivate, Label: "Anyone with the link"},
	{Value: VisibilityProtected, Label: "Private"},
}

// AlbumSpec describes an album to create. Date is day/month/year.
type AlbumSpec struct {
	Name       string
	Summary    string
	Location   string
	Visibility string
	Date       string
	Keywords   string
}

// UploadSpec describes a photo upload. Source is streamed into the request
// body; Size is optional and only used to announce Content-Length.
type UploadSpec struct {
	Source      io.Reader
	Size        int64
	AlbumID     string
	Title       string
	Summary     string
	ContentType string // defaults to image/jpeg
}

// Size is a rendition token inserted into photo URLs. SizeOriginal leaves
// URLs untouched.
type Size string

// Rendition sizes offered by the service.
const (
	SizeSquare    Size = "s75"
	SizeThumbnail Size = "s100"
	SizeSmall     Size = "s240"
	SizeMedium    Size = "s500"
	SizeLarge     Size = "s1024"
	SizeOriginal  Size = ""
)

// ErrInvalidSize is returned by ParseSize for tokens outside SizeOptions.
var ErrInvalidSize = errors.New("picasa: invalid photo size")

// Option is a value/label pair for host configuration forms.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SizeOptions lists every valid size with its configuration label.
var SizeOptions = []Option{
	{Value: string(SizeSquare), Label: "Square (75x75)"},
	{Value: string(SizeThumbnail), Label: "Thumbnail (100px)"},
	{Value: string(SizeSmall), Label: "Small (240px)"},
	{Value: string(SizeMedium), Label: "Medium (500px)"},
	{Value: string(SizeLarge), Label: "Large (1024px)"},
	{Value: string(SizeOriginal), Label: "Original Size"},
}

// ParseSize validates a persisted size token.
func ParseSize(s string) (Size, error) {
	for _, o := range SizeOptions {
		if o.Value == s {
			return Size(s), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidSize, s)
}
