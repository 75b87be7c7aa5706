package silo

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
)

// Plugin configuration actions offered to the host.
const (
	ActionAuthorize   = "Authorize"
	ActionDeauthorize = "De-Authorize"
	ActionConfigure   = "Configure"
)

// Authorizer is the authorization half of the silo; picasa.AuthFlow
// implements it.
type Authorizer interface {
	AuthorizationURL(returnURL string) string
	ExchangeGrant(ctx context.Context, grant string) error
	Deauthorize(ctx context.Context) error
	IsAuthorized(ctx context.Context) bool
}

// Photos is the remote half of the silo; picasa.PhotoService implements it.
type Photos interface {
	Lister
	Albums(ctx context.Context) ([]picasa.Album, error)
	CreateAlbum(ctx context.Context, spec picasa.AlbumSpec) error
	UploadPhoto(ctx context.Context, spec picasa.UploadSpec) error
}

// Info identifies the silo to the host's media browser.
type Info struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Silo is the host-facing facade. One Silo serves one identity for the
// lifetime of a request or session.
type Silo struct {
	auth      Authorizer
	photos    Photos
	router    *Router
	principal Principal
	iconURL   string
	logger    *slog.Logger
}

// New creates a Silo. principal may be nil, in which case no controls are
// contributed.
func New(auth Authorizer, photos Photos, principal Principal, iconURL string, logger *slog.Logger) *Silo {
	if logger == nil {
		logger = slog.Default()
	}

	return &Silo{
		auth:      auth,
		photos:    photos,
		router:    NewRouter(photos, logger),
		principal: principal,
		iconURL:   iconURL,
		logger:    logger,
	}
}

// ListDirectory lists the virtual directory at path.
func (s *Silo) ListDirectory(ctx context.Context, path string) ([]DirectoryEntry, error) {
	return s.router.List(ctx, path)
}

// CreateAlbum creates a remote album.
func (s *Silo) CreateAlbum(ctx context.Context, spec picasa.AlbumSpec) error {
	return s.photos.CreateAlbum(ctx, spec)
}

// UploadPhoto uploads a photo into an existing album.
func (s *Silo) UploadPhoto(ctx context.Context, spec picasa.UploadSpec) error {
	return s.photos.UploadPhoto(ctx, spec)
}

// AlbumChoices lists albums for the upload form's album selector.
func (s *Silo) AlbumChoices(ctx context.Context) ([]picasa.Album, error) {
	return s.photos.Albums(ctx)
}

// IsAuthorized reports whether the identity has a stored session token.
func (s *Silo) IsAuthorized(ctx context.Context) bool {
	return s.auth.IsAuthorized(ctx)
}

// AuthorizationURL returns the consent URL that redirects to returnURL.
func (s *Silo) AuthorizationURL(returnURL string) string {
	return s.auth.AuthorizationURL(returnURL)
}

// ExchangeGrant completes authorization with the grant from the redirect.
func (s *Silo) ExchangeGrant(ctx context.Context, grant string) error {
	return s.auth.ExchangeGrant(ctx, grant)
}

// Deauthorize forgets the identity's session token.
func (s *Silo) Deauthorize(ctx context.Context) error {
	return s.auth.Deauthorize(ctx)
}

// Info returns the silo's name and icon when authorized. An unauthorized
// silo returns the zero Info so the host hides it.
func (s *Silo) Info(ctx context.Context) Info {
	if !s.auth.IsAuthorized(ctx) {
		return Info{}
	}

	return Info{Name: picasa.SiloName, Icon: s.iconURL}
}

// Actions returns the plugin configuration actions for the current
// authorization state.
func (s *Silo) Actions(ctx context.Context) []string {
	if s.auth.IsAuthorized(ctx) {
		return []string{ActionDeauthorize, ActionConfigure}
	}

	return []string{ActionAuthorize, ActionConfigure}
}
