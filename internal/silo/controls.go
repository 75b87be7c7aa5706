package silo

import "github.com/tonimelisma/picasa-silo/internal/picasa"

// Host permissions that gate the media controls.
const (
	PermUploadMedia       = "upload_media"
	PermCreateDirectories = "create_directories"
)

// Panels the host renders for contributed controls.
const (
	PanelUpload   = "upload"
	PanelNewAlbum = "new-album"
)

// Principal is the host user the silo is acting for.
type Principal interface {
	Can(permission string) bool
}

// Control asks the host to offer a link that opens Panel for Path.
type Control struct {
	Label string `json:"label"`
	Panel string `json:"panel"`
	Path  string `json:"path"`
}

// ControlProvider is queried by the host for media-bar controls. The silo
// never calls into host UI code.
type ControlProvider interface {
	ContributeControls(path string) []Control
}

// ContributeControls returns the upload and album-creation controls the
// principal is allowed to use. The controls are the same for every path.
func (s *Silo) ContributeControls(_ string) []Control {
	controls := []Control{}
	if s.principal == nil {
		return controls
	}

	root := picasa.SiloName + "/"

	if s.principal.Can(PermUploadMedia) {
		controls = append(controls, Control{Label: "Upload", Panel: PanelUpload, Path: root})
	}

	if s.principal.Can(PermCreateDirectories) {
		controls = append(controls, Control{Label: "Create Album", Panel: PanelNewAlbum, Path: root})
	}

	return controls
}

// AllowAll is a Principal with every permission, for single-user hosts.
type AllowAll struct{}

// Can always reports true.
func (AllowAll) Can(string) bool { return true }
