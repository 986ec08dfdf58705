package config

import (
	"fmt"
	"strings"
)

// HeadRef is what the GitHub API and raw host accept for "the default branch".
const HeadRef = "HEAD"

// RepoRef is a resolved pointer into a GitHub repository. It is produced once
// per invocation by the resolver and never mutated afterwards.
type RepoRef struct {
	Owner     string // GitHub user or organisation
	Repo      string // Repository name
	Ref       string // Branch, tag or commit; empty means the default branch
	Directory string // Path inside the repository; empty means the root
	Private   bool   // Repository visibility as reported by the API
}

// RepoFullName returns "owner/repo".
func (r RepoRef) RepoFullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Repo)
}

// RefOrHead returns the git reference, or HEAD when none was given.
func (r RepoRef) RefOrHead() string {
	if r.Ref == "" {
		return HeadRef
	}
	return r.Ref
}

// IsWholeRepo reports whether the reference names no specific directory.
func (r RepoRef) IsWholeRepo() bool {
	return r.Directory == ""
}

// DirPrefix returns the directory with a trailing slash, or "" at the root.
// Listed file paths start with this prefix.
func (r RepoRef) DirPrefix() string {
	if r.Directory == "" {
		return ""
	}
	return strings.TrimSuffix(r.Directory, "/") + "/"
}

// ArchiveURL returns the zipball endpoint for the whole repository at Ref.
func (r RepoRef) ArchiveURL(apiBase string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/zipball", apiBase, r.Owner, r.Repo)
	if r.Ref != "" {
		u += "/" + r.Ref
	}
	return u
}

// String renders the reference the way it is shown to users.
func (r RepoRef) String() string {
	ref := r.Ref
	if ref == "" {
		ref = "default"
	}
	return fmt.Sprintf("%s@%s:/%s", r.RepoFullName(), ref, r.Directory)
}

// FileEntry describes one file returned by a directory listing.
type FileEntry struct {
	Path string // Relative to the repository root
	URL  string // API URL returning the file as a JSON envelope with base64 content
	Size int64  // Size in bytes, when the listing reports it
}

// RelativeTo returns the entry path with the directory prefix removed.
func (f FileEntry) RelativeTo(ref RepoRef) string {
	return strings.TrimPrefix(f.Path, ref.DirPrefix())
}
