// Package fsconf defines the filesystem layout under the connector root dir.
package fsconf

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

type Locs struct {
	// Dirs

	Root   string
	Logs   string
	State  string
	Output string

	// LastProcessedFile stores per-stream replication watermarks
	LastProcessedFile string
}

func j(parts ...string) string {
	return filepath.Join(parts...)
}

func DefaultRoot() (path string, err error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".powerbi-metadata"), nil
}

func New(root string) Locs {
	if root == "" {
		panic("provide root")
	}
	s := Locs{}
	s.Root = root
	s.Logs = j(s.Root, "logs")
	s.State = j(s.Root, "state")
	s.Output = j(s.Root, "output")
	s.LastProcessedFile = j(s.State, "last_processed.json")
	return s
}
