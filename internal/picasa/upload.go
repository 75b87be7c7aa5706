package picasa

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Multipart upload wire constants. The boundary is a literal token the
// service has always been sent; it is not randomized.
const (
	uploadBoundary     = "END_OF_PART"
	uploadPreamble     = "Media multipart posting"
	defaultImageType   = "image/jpeg"
	atomContentType    = "application/atom+xml"
	uploadContentType  = `multipart/related; boundary="` + uploadBoundary + `"`
	uploadMIMEVersion  = "1.0"
	mimeVersionHeader  = "MIME-version"
	contentTypeHeader  = "Content-Type"
	boundaryLineMarker = "\n--" + uploadBoundary
)

// ErrBoundaryCollision is returned when part content contains the literal
// boundary at the start of a line.
var ErrBoundaryCollision = errors.New("picasa: upload content contains the multipart boundary")

// photoEntry is the Atom metadata part of a photo upload.
type photoEntry struct {
	XMLName  xml.Name `xml:"entry"`
	Xmlns    string   `xml:"xmlns,attr"`
	Title    string   `xml:"title"`
	Summary  string   `xml:"summary"`
	Category category `xml:"category"`
}

// relatedWriter assembles a multipart/related body with a fixed boundary
// and LF line endings.
type relatedWriter struct {
	buf      bytes.Buffer
	boundary string
}

func newRelatedWriter(boundary, preamble string) *relatedWriter {
	w := &relatedWriter{boundary: boundary}
	w.buf.WriteString(preamble)
	w.buf.WriteByte('\n')

	return w
}

// openPart writes the delimiter and headers of a part. The caller supplies
// the content.
func (w *relatedWriter) openPart(contentType string) {
	w.buf.WriteString("--" + w.boundary + "\n")
	w.buf.WriteString(contentTypeHeader + ": " + contentType + "\n\n")
}

// writePart writes a complete in-memory part. content must be XML from
// xml.Marshal, which escapes newlines, so it cannot hold a delimiter line.
func (w *relatedWriter) writePart(contentType string, content []byte) {
	w.openPart(contentType)
	w.buf.Write(content)
	w.buf.WriteByte('\n')
}

func (w *relatedWriter) closing() []byte {
	return []byte("\n--" + w.boundary + "--\n")
}

// uploadBody is the streamed request body of a photo upload.
type uploadBody struct {
	io.Reader
	length int64
}

// ContentLength reports the full body size, or -1 when the source size is
// unknown (chunked transfer).
func (b *uploadBody) ContentLength() int64 {
	return b.length
}

// buildUploadBody lays out the metadata part and the open image part in
// memory, then streams the source behind them.
func buildUploadBody(spec UploadSpec) (*uploadBody, error) {
	meta, err := xml.Marshal(photoEntry{
		Xmlns:    NamespaceAtom,
		Title:    spec.Title,
		Summary:  spec.Summary,
		Category: category{Scheme: kindScheme, Term: kindPhoto},
	})
	if err != nil {
		return nil, fmt.Errorf("picasa: encoding photo entry: %w", err)
	}

	w := newRelatedWriter(uploadBoundary, uploadPreamble)
	w.writePart(atomContentType, meta)

	imageType := spec.ContentType
	if imageType == "" {
		imageType = defaultImageType
	}

	w.openPart(imageType)

	head := w.buf.Bytes()
	tail := w.closing()

	length := int64(-1)
	if spec.Size > 0 {
		length = int64(len(head)) + spec.Size + int64(len(tail))
	}

	// The head ends with "\n\n", so a boundary on the image's first line
	// is caught by seeding the guard with that newline.
	guard := &boundaryGuard{r: spec.Source, marker: []byte(boundaryLineMarker), tail: []byte{'\n'}}

	return &uploadBody{
		Reader: io.MultiReader(bytes.NewReader(head), guard, bytes.NewReader(tail)),
		length: length,
	}, nil
}

// boundaryGuard fails the stream if marker appears in the data, including
// across read boundaries.
type boundaryGuard struct {
	r      io.Reader
	marker []byte
	tail   []byte
}

func (g *boundaryGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	if n == 0 {
		return n, err
	}

	window := make([]byte, 0, len(g.tail)+n)
	window = append(window, g.tail...)
	window = append(window, p[:n]...)

	if bytes.Contains(window, g.marker) {
		return 0, ErrBoundaryCollision
	}

	keep := len(g.marker) - 1
	if len(window) > keep {
		window = window[len(window)-keep:]
	}

	g.tail = window

	return n, err
}
