package picasa

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumTimestamp_NextDayMidnight(t *testing.T) {
	got, err := AlbumTimestamp("15/6/2020", time.Local)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.June, 16, 0, 0, 0, 0, time.Local).UnixMilli(), got)
}

func TestAlbumTimestamp_RollsOver(t *testing.T) {
	got, err := AlbumTimestamp("31/12/2020", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), got)

	got, err = AlbumTimestamp(" 28 / 2 / 2021 ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), got)
}

func TestAlbumTimestamp_NilLocationIsLocal(t *testing.T) {
	got, err := AlbumTimestamp("1/1/2000", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2000, time.January, 2, 0, 0, 0, 0, time.Local).UnixMilli(), got)
}

func TestAlbumTimestamp_Invalid(t *testing.T) {
	for _, date := range []string{"", "2020-06-15", "15/6", "a/b/c", "32/1/2020", "0/1/2020", "1/13/2020", "1/1/0"} {
		_, err := AlbumTimestamp(date, time.UTC)
		assert.ErrorIs(t, err, ErrInvalidDate, "date %q", date)
	}
}

func TestBuildAlbumEntry(t *testing.T) {
	data, err := buildAlbumEntry(AlbumSpec{
		Name:       "Trip & Friends",
		Summary:    "Summer",
		Location:   "Lisbon",
		Visibility: VisibilityPrivate,
		Date:       "15/6/2020",
		Keywords:   "beach, sun",
	}, time.UTC)
	require.NoError(t, err)

	doc, err := ParseDocument(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, NamespaceAtom, doc.Name.Space)
	assert.Equal(t, "entry", doc.Name.Local)

	title := SelectInNamespace(doc, NamespaceAtom, "title")
	assert.Equal(t, "Trip & Friends", title.Text())
	assert.Equal(t, "text", title.Attr("type"))
	assert.Equal(t, "Summer", SelectInNamespace(doc, NamespaceAtom, "summary").Text())
	assert.Equal(t, "Lisbon", SelectInNamespace(doc, NamespaceGPhoto, "location").Text())
	assert.Equal(t, "private", SelectInNamespace(doc, NamespaceGPhoto, "access").Text())
	assert.Equal(t, "1592265600000", SelectInNamespace(doc, NamespaceGPhoto, "timestamp").Text())

	group := SelectInNamespace(doc, NamespaceMedia, "group")
	assert.Equal(t, "beach, sun", SelectInNamespace(group, NamespaceMedia, "keywords").Text())

	cat := SelectInNamespace(doc, NamespaceAtom, "category")
	assert.Equal(t, kindScheme, cat.Attr("scheme"))
	assert.Equal(t, kindAlbum, cat.Attr("term"))
}

func TestBuildAlbumEntry_InvalidDate(t *testing.T) {
	_, err := buildAlbumEntry(AlbumSpec{Name: "x", Date: "yesterday"}, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDate)
}
