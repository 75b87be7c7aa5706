package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContributeControls_Permissions(t *testing.T) {
	upload := Control{Label: "Upload", Panel: PanelUpload, Path: "Picasa/"}
	album := Control{Label: "Create Album", Panel: PanelNewAlbum, Path: "Picasa/"}

	tests := []struct {
		name  string
		perms permissions
		want  []Control
	}{
		{"none", permissions{}, []Control{}},
		{"upload only", permissions{PermUploadMedia: true}, []Control{upload}},
		{"create only", permissions{PermCreateDirectories: true}, []Control{album}},
		{"both", permissions{PermUploadMedia: true, PermCreateDirectories: true}, []Control{upload, album}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeAuth{}, &fakePhotos{}, tt.perms, "", discardLogger())
			assert.Equal(t, tt.want, s.ContributeControls("Picasa/albums"))
		})
	}
}

func TestContributeControls_SameForEveryPath(t *testing.T) {
	s := New(&fakeAuth{}, &fakePhotos{}, AllowAll{}, "", discardLogger())

	want := s.ContributeControls("")
	assert.Len(t, want, 2)
	assert.Equal(t, want, s.ContributeControls("Picasa/photos/album/42"))
}

func TestContributeControls_NoPrincipal(t *testing.T) {
	s := New(&fakeAuth{}, &fakePhotos{}, nil, "", discardLogger())

	got := s.ContributeControls("")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSilo_ImplementsControlProvider(t *testing.T) {
	var _ ControlProvider = (*Silo)(nil)
}
