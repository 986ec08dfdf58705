package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DiskWriter writes each file below Root, with Prefix removed from its
// repository path.
type DiskWriter struct {
	Fs     afero.Fs
	Root   string
	Prefix string
}

var _ Sink = (*DiskWriter)(nil)

// Put writes data, creating parent directories as needed.
func (w *DiskWriter) Put(repoPath string, data []byte) error {
	rel, err := relative(repoPath, w.Prefix)
	if err != nil {
		return err
	}
	target := filepath.Join(w.Root, filepath.FromSlash(rel))

	if err := w.Fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}
	if err := afero.WriteFile(w.Fs, target, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

// Close is a no-op; every Put is written through.
func (w *DiskWriter) Close() error {
	return nil
}

// PrepareDestination makes sure dir can receive files. An existing
// non-directory is always a conflict; a non-empty directory is one unless
// force is set. A missing directory is created.
func PrepareDestination(fs afero.Fs, dir string, force bool) error {
	info, err := fs.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fs.MkdirAll(dir, 0o755)
	case err != nil:
		return fmt.Errorf("checking destination %s: %w", dir, err)
	case !info.IsDir():
		return &ConflictError{Path: dir, Reason: "exists and is not a directory"}
	}

	if force {
		return nil
	}
	empty, err := afero.IsEmpty(fs, dir)
	if err != nil {
		return fmt.Errorf("checking destination %s: %w", dir, err)
	}
	if !empty {
		return &ConflictError{Path: dir, Reason: "already exists and is not empty (use --force to write into it)"}
	}
	return nil
}
