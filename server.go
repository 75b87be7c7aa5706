package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/tonimelisma/picasa-silo/internal/events"
	"github.com/tonimelisma/picasa-silo/internal/metrics"
	"github.com/tonimelisma/picasa-silo/internal/picasa"
	"github.com/tonimelisma/picasa-silo/internal/silo"
)

// Request headers a host uses to scope a call.
const (
	headerUser        = "X-Silo-User"
	headerPermissions = "X-Silo-Permissions"
	headerRequestID   = "X-Request-ID"
)

// callbackPath receives the consent redirect.
const callbackPath = "/auth/callback"

// maxJSONBody caps decoded JSON request bodies.
const maxJSONBody = 64 << 10

// Event stream keepalive.
const (
	eventPingInterval = 30 * time.Second
	eventWriteTimeout = 10 * time.Second
)

// siloServer exposes the silo facade as a small JSON API for a host.
// A nil hub disables the event stream; nil metrics disables /metrics.
type siloServer struct {
	backend  *backend
	identity string
	hub      *events.Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// origin is the browser-facing base URL the consent page returns to.
	// It comes from the listener, never from request headers.
	origin string
}

func newSiloServer(
	b *backend, identity string, hub *events.Hub, m *metrics.Metrics, logger *slog.Logger,
) *siloServer {
	return &siloServer{backend: b, identity: identity, hub: hub, metrics: m, logger: logger}
}

func (s *siloServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/list", s.handleList)
	mux.HandleFunc("GET /api/controls", s.handleControls)
	mux.HandleFunc("GET /api/albums", s.handleAlbums)
	mux.HandleFunc("POST /api/albums", s.handleCreateAlbum)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/size", s.handleGetSize)
	mux.HandleFunc("PUT /api/size", s.handleSetSize)
	mux.HandleFunc("GET /auth/start", s.handleAuthStart)
	mux.HandleFunc("GET "+callbackPath, s.handleAuthCallback)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	if s.hub != nil {
		mux.HandleFunc("GET /api/events", s.handleEvents)
	}

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.withRequestID(s.instrument(mux))
}

// listenerOrigin is the http origin a local browser reaches addr at.
// Wildcard binds are reached through loopback.
func listenerOrigin(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return "http://" + addr.String()
	}

	ip := tcp.IP
	if ip == nil || ip.IsUnspecified() {
		ip = net.IPv4(127, 0, 0, 1)
	}

	return "http://" + net.JoinHostPort(ip.String(), strconv.Itoa(tcp.Port))
}

// instrument records the status and duration of every request by the mux
// pattern that served it.
func (s *siloServer) instrument(mux *http.ServeMux) http.Handler {
	if s.metrics == nil {
		return mux
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		mux.ServeHTTP(rec, r)

		// ServeMux stores the matched pattern on r.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		s.metrics.RecordHTTPRequest(r.Method, route, rec.code(), time.Since(start))
	})
}

// statusRecorder remembers the response status. It forwards Hijack so the
// event stream can still upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}

	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}

	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(rw.ResponseWriter).Hijack()
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *statusRecorder) code() int {
	if rw.status == 0 {
		return http.StatusOK
	}

	return rw.status
}

type loggerKey struct{}

// withRequestID tags every request with an id that appears in the response
// header and in every log line written while serving it.
func (s *siloServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(headerRequestID, id)

		logger := s.logger.With(slog.String("request_id", id))
		logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger)))
	})
}

func requestLogger(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}

	return slog.Default()
}

func (s *siloServer) identityFor(r *http.Request) string {
	if identity := r.Header.Get(headerUser); identity != "" {
		return identity
	}

	return s.identity
}

// siloFor builds the silo for the identity and principal of one request.
func (s *siloServer) siloFor(r *http.Request) *silo.Silo {
	return s.backend.silo(s.identityFor(r), principalFrom(r), requestLogger(r))
}

// publish notifies the request's identity of a change.
func (s *siloServer) publish(r *http.Request, typ, path string) {
	if s.hub == nil {
		return
	}

	s.hub.Publish(events.Event{Type: typ, Identity: s.identityFor(r), Path: path})
}

// headerPrincipal is a Principal holding the permissions a host listed.
type headerPrincipal map[string]bool

func (p headerPrincipal) Can(perm string) bool { return p[perm] }

// principalFrom reads the comma-separated permission header. Without the
// header the caller is trusted with everything.
func principalFrom(r *http.Request) silo.Principal {
	raw, ok := r.Header[http.CanonicalHeaderKey(headerPermissions)]
	if !ok {
		return silo.AllowAll{}
	}

	p := headerPrincipal{}

	for _, v := range raw {
		for _, perm := range strings.Split(v, ",") {
			if perm = strings.TrimSpace(perm); perm != "" {
				p[perm] = true
			}
		}
	}

	return p
}

type infoResponse struct {
	silo.Info
	Authorized bool     `json:"authorized"`
	Actions    []string `json:"actions"`
}

func (s *siloServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	sl := s.siloFor(r)

	writeJSON(w, http.StatusOK, infoResponse{
		Info:       sl.Info(r.Context()),
		Authorized: sl.IsAuthorized(r.Context()),
		Actions:    sl.Actions(r.Context()),
	})
}

func (s *siloServer) handleList(w http.ResponseWriter, r *http.Request) {
	path := silo.RelativePath(r.URL.Query().Get("path"))

	entries, err := s.siloFor(r).ListDirectory(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]lsEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, lsEntry(e))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *siloServer) handleControls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.siloFor(r).ContributeControls(r.URL.Query().Get("path")))
}

type albumChoice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (s *siloServer) handleAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := s.siloFor(r).AlbumChoices(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]albumChoice, 0, len(albums))
	for _, a := range albums {
		out = append(out, albumChoice(a))
	}

	writeJSON(w, http.StatusOK, out)
}

// albumRequest is the JSON body of POST /api/albums.
type albumRequest struct {
	Name       string `json:"name"`
	Summary    string `json:"summary"`
	Location   string `json:"location"`
	Visibility string `json:"visibility"`
	Date       string `json:"date"`
	Keywords   string `json:"keywords"`
}

var errBadRequest = errors.New("bad request")

func (s *siloServer) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req albumRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, errors.Join(errBadRequest, err))
		return
	}

	if req.Name == "" {
		writeError(w, r, errors.Join(errBadRequest, errors.New("album name is required")))
		return
	}

	if req.Visibility == "" {
		req.Visibility = picasa.VisibilityPublic
	}

	if err := validateVisibility(req.Visibility); err != nil {
		writeError(w, r, errors.Join(errBadRequest, err))
		return
	}

	if req.Date == "" {
		req.Date = today()
	}

	if err := s.siloFor(r).CreateAlbum(r.Context(), picasa.AlbumSpec(req)); err != nil {
		writeError(w, r, err)
		return
	}

	s.publish(r, events.TypeAlbumCreated, picasa.SiloName+"/albums")
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// handleUpload streams the request body into the album named by the
// album_id query parameter.
func (s *siloServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	spec := picasa.UploadSpec{
		Source:      r.Body,
		Size:        r.ContentLength,
		AlbumID:     q.Get("album_id"),
		Title:       q.Get("title"),
		Summary:     q.Get("summary"),
		ContentType: r.Header.Get("Content-Type"),
	}

	if !strings.HasPrefix(spec.ContentType, "image/") {
		spec.ContentType = ""
	}

	if err := s.siloFor(r).UploadPhoto(r.Context(), spec); err != nil {
		writeError(w, r, err)
		return
	}

	s.publish(r, events.TypePhotoUploaded, picasa.AlbumPath(spec.AlbumID))
	writeJSON(w, http.StatusCreated, map[string]string{"album_id": spec.AlbumID, "title": spec.Title})
}

func (s *siloServer) handleGetSize(w http.ResponseWriter, r *http.Request) {
	current, err := s.backend.options.PhotoSize(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sizeOutput{Current: string(current), Options: picasa.SizeOptions})
}

func (s *siloServer) handleSetSize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Size *string `json:"size"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil || req.Size == nil {
		writeError(w, r, errors.Join(errBadRequest, errors.New(`body must be {"size": "<token>"}`)))
		return
	}

	if err := s.backend.options.SetPhotoSize(r.Context(), picasa.Size(*req.Size)); err != nil {
		writeError(w, r, err)
		return
	}

	if s.hub != nil {
		s.hub.Publish(events.Event{Type: events.TypeSizeChanged})
	}

	writeJSON(w, http.StatusOK, map[string]string{"size": *req.Size})
}

// handleAuthStart sends the browser to the consent page, which redirects
// back to this server's callback.
func (s *siloServer) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	returnURL := s.origin + callbackPath
	if user := r.Header.Get(headerUser); user != "" {
		returnURL += "?user=" + url.QueryEscape(user)
	}

	http.Redirect(w, r, s.siloFor(r).AuthorizationURL(returnURL), http.StatusFound)
}

// handleAuthCallback exchanges the grant. The identity travels in the
// return URL because the browser does not send host headers.
func (s *siloServer) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if user := q.Get("user"); user != "" {
		r.Header.Set(headerUser, user)
	}

	if err := s.siloFor(r).ExchangeGrant(r.Context(), q.Get(grantParam)); err != nil {
		writeError(w, r, err)
		return
	}

	s.publish(r, events.TypeAuthorized, "")
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": true})
}

func (s *siloServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.siloFor(r).Deauthorize(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	s.publish(r, events.TypeDeauthorized, "")
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": false})
}

// handleEvents streams change notifications for the request's identity as
// JSON text messages until the client goes away.
func (s *siloServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r)

	// Subscribe first so nothing published after the handshake is missed.
	sub := s.hub.Subscribe(s.identityFor(r))
	defer sub.Cancel()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("event stream upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusTryAgainLater, "event subscriber fell behind")
				return
			}

			if err := writeEvent(ctx, conn, ev); err != nil {
				logger.Debug("event stream closed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()

			if err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()

	return wsjson.Write(ctx, conn, ev)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps silo errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, picasa.ErrInvalidDate),
		errors.Is(err, picasa.ErrInvalidSize),
		errors.Is(err, picasa.ErrMissingAlbum),
		errors.Is(err, picasa.ErrMissingGrant),
		errors.Is(err, picasa.ErrBoundaryCollision):
		return http.StatusBadRequest
	case errors.Is(err, picasa.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, picasa.ErrTransportFailure),
		errors.Is(err, picasa.ErrEmptyResponse),
		errors.Is(err, picasa.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	requestLogger(r).Warn("request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: w.Header().Get(headerRequestID)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("encoding response", slog.String("error", err.Error()))
	}
}
