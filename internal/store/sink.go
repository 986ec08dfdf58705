// Package store persists downloaded files, either as loose files on an
// afero filesystem or as a single zip archive.
package store

import (
	"fmt"
	"path"
	"strings"

	"github.com/cbout22/ghdir/internal/config"
)

// Sink receives downloaded files. Put may be called concurrently.
type Sink interface {
	// Put stores data under the repository-relative path.
	Put(path string, data []byte) error

	// Close flushes anything buffered. No Put may follow.
	Close() error
}

// ConflictError is returned when the destination cannot be used.
type ConflictError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("destination %s %s", e.Path, e.Reason)
}

// relative strips prefix from a repository path and rejects anything that
// would escape the destination.
func relative(repoPath, prefix string) (string, error) {
	rel := strings.TrimPrefix(repoPath, prefix)
	rel = path.Clean(strings.TrimPrefix(rel, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("refusing to write %q outside the destination", repoPath)
	}
	return rel, nil
}

// DefaultCloneDir is the folder name clone uses when no destination is
// given: the last segment of the directory, or the repository name.
func DefaultCloneDir(ref config.RepoRef) string {
	if dir := strings.Trim(ref.Directory, "/"); dir != "" {
		return path.Base(dir)
	}
	return ref.Repo
}
