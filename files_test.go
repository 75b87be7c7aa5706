package main

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
	"github.com/tonimelisma/picasa-silo/internal/silo"
)

func TestImageContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"holiday.jpg", "image/jpeg"},
		{"HOLIDAY.JPG", "image/jpeg"},
		{"scan.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"notes.txt", ""},
		{"noext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, imageContentType(tt.path))
		})
	}
}

func TestValidateVisibility(t *testing.T) {
	for _, o := range picasa.VisibilityOptions {
		assert.NoError(t, validateVisibility(o.Value))
	}

	assert.Error(t, validateVisibility("secret"))
	assert.Error(t, validateVisibility(""))
}

func TestToday(t *testing.T) {
	d := today()
	require.Regexp(t, regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), d)

	ts, err := picasa.AlbumTimestamp(d, nil)
	require.NoError(t, err)
	assert.Positive(t, ts)
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer

	printEntries(&buf, []silo.DirectoryEntry{
		{Path: "Picasa/photos/album/42", IsContainer: true, Title: "Holiday"},
		{
			Path:       "Picasa/photos/42/IMG_1.jpg",
			Title:      "IMG_1.jpg",
			Properties: map[string]string{picasa.PropFullURL: "https://lh3.example.com/s500/IMG_1.jpg"},
		},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[0], "TYPE"))
	assert.True(t, strings.HasPrefix(lines[1], "dir"))
	assert.True(t, strings.HasSuffix(lines[1], "Picasa/photos/album/42"))
	assert.True(t, strings.HasPrefix(lines[2], "photo"))
	assert.True(t, strings.HasSuffix(lines[2], "https://lh3.example.com/s500/IMG_1.jpg"))
}

func TestLsEntryMatchesDirectoryEntry(t *testing.T) {
	e := silo.DirectoryEntry{Path: "Picasa/tags", IsContainer: true, Title: "Tags"}

	out := lsEntry(e)
	assert.Equal(t, e.Path, out.Path)
	assert.True(t, out.IsContainer)
	assert.Equal(t, "Tags", out.Title)
}
