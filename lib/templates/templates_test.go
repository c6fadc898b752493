package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		id    string
		found bool
		port  int
	}{
		{"ubuntu-desktop", true, 3000},
		{"alpine-desktop", true, 3001},
		{"debian-desktop", true, 3000},
		{"windows-desktop", false, 0},
		{"", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tmpl, ok := c.Get(tt.id)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotEmpty(t, tmpl.Ports)
				assert.Equal(t, tt.port, tmpl.Ports[0])
				assert.NotEmpty(t, tmpl.CanonicalName)
			}
		})
	}
}

func TestCatalogListIsSorted(t *testing.T) {
	ids := []string{}
	for _, tmpl := range DefaultCatalog().List() {
		ids = append(ids, tmpl.ID)
	}
	assert.Equal(t, []string{"alpine-desktop", "debian-desktop", "ubuntu-desktop"}, ids)
}

func TestCanonicalNames(t *testing.T) {
	assert.Equal(t, []string{
		"hypedesk-alpine-desktop",
		"hypedesk-debian-desktop",
		"hypedesk-ubuntu-desktop",
	}, DefaultCatalog().CanonicalNames())
}

func TestRenderAccessURL(t *testing.T) {
	tmpl := Template{AccessURL: "http://localhost:{port}/vnc?port={port}"}
	assert.Equal(t, "http://localhost:3003/vnc?port=3003", tmpl.RenderAccessURL(3003))

	assert.Empty(t, Template{}.RenderAccessURL(3000))
}

func TestNewCatalogValidation(t *testing.T) {
	valid := Template{ID: "x", Image: "alpine", Ports: []int{80}}

	tests := []struct {
		name   string
		mutate func(*Template)
		errMsg string
	}{
		{"missing id", func(t *Template) { t.ID = "" }, "id is required"},
		{"bad image", func(t *Template) { t.Image = "UPPER/Case" }, "image"},
		{"no ports", func(t *Template) { t.Ports = nil }, "at least one port"},
		{"port out of range", func(t *Template) { t.Ports = []int{70000} }, "out of range"},
		{"duplicate ports", func(t *Template) { t.Ports = []int{80, 80} }, "duplicate ports"},
		{"relative target", func(t *Template) { t.Volumes = []Volume{{Source: "a", Target: "b"}} }, "absolute target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := valid
			tt.mutate(&tmpl)
			_, err := NewCatalog([]Template{tmpl})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := NewCatalog([]Template{valid, valid})
	assert.ErrorContains(t, err, "duplicate id")
}

func TestNewCatalogNormalizesImage(t *testing.T) {
	c, err := NewCatalog([]Template{{ID: "shell", Image: "ubuntu", Ports: []int{22}}})
	require.NoError(t, err)

	tmpl, ok := c.Get("shell")
	require.True(t, ok)
	assert.Equal(t, "docker.io/library/ubuntu:latest", tmpl.Image)
	assert.Equal(t, "shell", tmpl.Name, "name defaults to id")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `
- id: kali-desktop
  name: Kali Desktop
  image: lscr.io/linuxserver/kali-linux:latest
  ports: [3000, 3001]
  env:
    PUID: "1000"
  volumes:
    - source: config
      target: /config
  access_url: "http://localhost:{port}"
  canonical_name: hypedesk-kali-desktop
  resources:
    cpu: "4"
    memory: 8GB
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := LoadFile(path)
	require.NoError(t, err)

	tmpl, ok := c.Get("kali-desktop")
	require.True(t, ok)
	assert.Equal(t, []int{3000, 3001}, tmpl.Ports)
	assert.Equal(t, "1000", tmpl.Env["PUID"])
	assert.Equal(t, []Volume{{Source: "config", Target: "/config"}}, tmpl.Volumes)
	assert.Equal(t, "8GB", tmpl.Resources.Memory)
	assert.Equal(t, []string{"hypedesk-kali-desktop"}, c.CanonicalNames())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read templates file")
}
