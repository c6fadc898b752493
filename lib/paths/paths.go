// Package paths centralizes the on-disk layout under the data directory.
//
//	{dataDir}/
//	  hypedesk.db              instance records (SQLite)
//	  volumes/{container}/...  host-side sources for template volume mounts
package paths

import (
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Paths resolves locations under a single data directory.
type Paths struct {
	dataDir string
}

// New creates a Paths rooted at dataDir.
func New(dataDir string) *Paths {
	return &Paths{dataDir: dataDir}
}

// DataDir returns the root data directory.
func (p *Paths) DataDir() string {
	return p.dataDir
}

// Database returns the SQLite database file path.
func (p *Paths) Database() string {
	return filepath.Join(p.dataDir, "hypedesk.db")
}

// VolumesDir returns the directory holding per-container volume sources.
func (p *Paths) VolumesDir() string {
	return filepath.Join(p.dataDir, "volumes")
}

// ContainerVolumesDir returns the volume root for one container.
func (p *Paths) ContainerVolumesDir(containerName string) (string, error) {
	return securejoin.SecureJoin(p.VolumesDir(), containerName)
}

// VolumeSource resolves a template volume source for a container. The
// result never escapes the container's volume root, even for sources like
// "../../etc".
func (p *Paths) VolumeSource(containerName, source string) (string, error) {
	root, err := p.ContainerVolumesDir(containerName)
	if err != nil {
		return "", err
	}
	return securejoin.SecureJoin(root, source)
}
