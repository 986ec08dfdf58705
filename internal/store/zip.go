package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/cbout22/ghdir/internal/config"
)

// ZipWriter collects files into a deflated zip archive. The archive is
// written to a temporary name and moved into place by Close, so an
// interrupted run never leaves a truncated archive at the final path.
type ZipWriter struct {
	fs     afero.Fs
	target string
	tmp    string
	prefix string

	mu   sync.Mutex
	file afero.File
	zw   *zip.Writer
	now  func() time.Time
}

var _ Sink = (*ZipWriter)(nil)

// NewZipWriter creates the archive at target, creating its parent directory.
func NewZipWriter(fs afero.Fs, target, prefix string) (*ZipWriter, error) {
	if info, err := fs.Stat(target); err == nil && info.IsDir() {
		return nil, &ConflictError{Path: target, Reason: "is a directory"}
	}
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", target, err)
	}

	tmp := target + ".part"
	f, err := fs.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", tmp, err)
	}
	return &ZipWriter{
		fs:     fs,
		target: target,
		tmp:    tmp,
		prefix: prefix,
		file:   f,
		zw:     zip.NewWriter(f),
		now:    time.Now,
	}, nil
}

// Path returns where the finished archive is written.
func (w *ZipWriter) Path() string {
	return w.target
}

// Put adds one file to the archive.
func (w *ZipWriter) Put(repoPath string, data []byte) error {
	rel, err := relative(repoPath, w.prefix)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     rel,
		Method:   zip.Deflate,
		Modified: w.now(),
	})
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", rel, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("adding %s to archive: %w", rel, err)
	}
	return nil
}

// Close finishes the archive and moves it to its final path.
func (w *ZipWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.zw.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", w.tmp, err)
	}
	if err := w.fs.Rename(w.tmp, w.target); err != nil {
		return fmt.Errorf("renaming %s: %w", w.tmp, err)
	}
	return nil
}

// Abort discards the partial archive.
func (w *ZipWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.file.Close()
	return w.fs.Remove(w.tmp)
}

// ZipName returns output itself when it already names a .zip file, otherwise
// {owner}-{repo}-{ref}[-{dir}].zip inside output.
func ZipName(output string, ref config.RepoRef) string {
	if strings.HasSuffix(strings.ToLower(output), ".zip") {
		return output
	}
	name := fmt.Sprintf("%s-%s-%s", ref.Owner, ref.Repo, strings.ReplaceAll(ref.RefOrHead(), "/", "-"))
	if dir := strings.Trim(ref.Directory, "/"); dir != "" {
		name += "-" + strings.ReplaceAll(dir, "/", "-")
	}
	return filepath.Join(output, name+".zip")
}
