// Package testutil provides shared helpers for the end-to-end tests, which
// drive the built binary rather than importing its packages.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// BuildBinary compiles the module's main package to out.
func BuildBinary(moduleRoot, out string) error {
	cmd := exec.Command("go", "build", "-o", out, ".")
	cmd.Dir = moduleRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("building binary: %w", err)
	}

	return nil
}

// FeedPath is where FakePicasa serves the user feed.
const FeedPath = "/data/feed/api/user/default"

// SessionPath is where FakePicasa exchanges grants.
const SessionPath = "/accounts/AuthSubSessionToken"

// Request is one call FakePicasa received.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

// FakePicasa is an in-memory stand-in for the photo service. It accepts a
// single grant, keeps created album names, and lists them back in the
// album feed.
type FakePicasa struct {
	Grant        string
	SessionToken string

	server   *httptest.Server
	mu       sync.Mutex
	albums   []string
	requests []Request
}

// NewFakePicasa starts the fake service.
func NewFakePicasa(grant, sessionToken string) *FakePicasa {
	f := &FakePicasa{Grant: grant, SessionToken: sessionToken}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))

	return f
}

// URL is the base URL of the running fake.
func (f *FakePicasa) URL() string { return f.server.URL }

// Close stops the fake.
func (f *FakePicasa) Close() { f.server.Close() }

// Requests returns a copy of every request received so far.
func (f *FakePicasa) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Request(nil), f.requests...)
}

func (f *FakePicasa) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})

	if r.URL.Path == SessionPath {
		if r.Header.Get("Authorization") != `AuthSub token="`+f.Grant+`"` {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		fmt.Fprintf(w, "Token=%s\n", f.SessionToken)

		return
	}

	if r.Header.Get("Authorization") != "AuthSub token="+f.SessionToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == FeedPath:
		f.albums = append(f.albums, between(string(body), `<title type="text">`, "</title>"))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `<entry xmlns="http://www.w3.org/2005/Atom"><title>ok</title></entry>`)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, FeedPath+"/album/"):
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `<entry xmlns="http://www.w3.org/2005/Atom"><title>ok</title></entry>`)
	case r.Method == http.MethodPost:
		w.WriteHeader(http.StatusNotFound)
	case r.URL.Query().Get("kind") == "album":
		f.writeAlbums(w)
	default:
		io.WriteString(w, `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	}
}

func (f *FakePicasa) writeAlbums(w io.Writer) {
	var b strings.Builder

	b.WriteString(`<rss version="2.0" xmlns:gphoto="http://schemas.google.com/photos/2007"><channel>`)

	for i, name := range f.albums {
		fmt.Fprintf(&b, "<item><title>%s</title><gphoto:id>%d</gphoto:id></item>", name, 100+i)
	}

	b.WriteString("</channel></rss>")

	io.WriteString(w, b.String())
}

func between(s, start, end string) string {
	_, after, ok := strings.Cut(s, start)
	if !ok {
		return ""
	}

	v, _, _ := strings.Cut(after, end)

	return v
}
