package picasa

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category classification for entry documents.
const (
	kindScheme = "http://schemas.google.com/g/2005#kind"
	kindAlbum  = "http://schemas.google.com/photos/2007#album"
	kindPhoto  = "http://schemas.google.com/photos/2007#photo"
)

const datePartCount = 3

// albumEntry is the Atom entry POSTed to create an album. Prefixed names
// are written literally so the namespace declarations on the root apply.
type albumEntry struct {
	XMLName     xml.Name   `xml:"entry"`
	Xmlns       string     `xml:"xmlns,attr"`
	XmlnsMedia  string     `xml:"xmlns:media,attr"`
	XmlnsGPhoto string     `xml:"xmlns:gphoto,attr"`
	Title       typedText  `xml:"title"`
	Summary     typedText  `xml:"summary"`
	Location    string     `xml:"gphoto:location"`
	Access      string     `xml:"gphoto:access"`
	Timestamp   int64      `xml:"gphoto:timestamp"`
	Group       mediaGroup `xml:"media:group"`
	Category    category   `xml:"category"`
}

type typedText struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type mediaGroup struct {
	Keywords string `xml:"media:keywords"`
}

type category struct {
	Scheme string `xml:"scheme,attr"`
	Term   string `xml:"term,attr"`
}

// buildAlbumEntry serializes spec into the album creation document.
func buildAlbumEntry(spec AlbumSpec, loc *time.Location) ([]byte, error) {
	ts, err := AlbumTimestamp(spec.Date, loc)
	if err != nil {
		return nil, err
	}

	entry := albumEntry{
		Xmlns:       NamespaceAtom,
		XmlnsMedia:  NamespaceMedia,
		XmlnsGPhoto: NamespaceGPhoto,
		Title:       typedText{Type: "text", Value: spec.Name},
		Summary:     typedText{Type: "text", Value: spec.Summary},
		Location:    spec.Location,
		Access:      spec.Visibility,
		Timestamp:   ts,
		Group:       mediaGroup{Keywords: spec.Keywords},
		Category:    category{Scheme: kindScheme, Term: kindAlbum},
	}

	data, err := xml.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("picasa: encoding album entry: %w", err)
	}

	return data, nil
}

// AlbumTimestamp converts a day/month/year date into the millisecond
// timestamp the service expects for gphoto:timestamp.
//
// The result is local midnight of the FOLLOWING day: "15/6/2020" yields
// midnight of 16 June 2020. Existing albums are dated this way.
func AlbumTimestamp(date string, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.Local
	}

	parts := strings.Split(strings.TrimSpace(date), "/")
	if len(parts) != datePartCount {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	var nums [datePartCount]int

	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}

		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	// time.Date normalizes day+1 across month and year ends.
	return time.Date(year, time.Month(month), day+1, 0, 0, 0, 0, loc).UnixMilli(), nil
}
