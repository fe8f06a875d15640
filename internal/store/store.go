// Package store writes mirrored pages to the local filesystem.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWrite is returned when an artifact cannot be written.
var ErrWrite = errors.New("failed to write artifact")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FS stores artifacts below a root directory.
type FS struct {
	root string
}

// NewFS returns an FS rooted at dir. The directory is created on first write.
func NewFS(dir string) *FS {
	if dir == "" {
		dir = "."
	}
	return &FS{root: dir}
}

// Root returns the root directory.
func (s *FS) Root() string {
	return s.root
}

// Put writes data to rel below the root, creating parent directories as
// needed and overwriting an existing file. It returns the full path written.
func (s *FS) Put(rel string, data []byte) (string, error) {
	full := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), dirPerm); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, full, err)
	}
	if err := os.WriteFile(full, data, filePerm); err != nil { //nolint:gosec // mirrored pages are meant to be readable
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, full, err)
	}
	return full, nil
}
