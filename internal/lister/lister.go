// Package lister enumerates the files under a directory of a GitHub
// repository using the go-github client.
package lister

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/cbout22/ghdir/internal/config"
	"github.com/cbout22/ghdir/internal/gateway"
)

// Listing is the result of a single tree call.
type Listing struct {
	Files     []config.FileEntry
	Truncated bool // GitHub capped the tree; the list is incomplete
}

// Lister wraps a go-github client.
type Lister struct {
	gh  *gogithub.Client
	log *slog.Logger
}

// New creates a Lister from a (possibly anonymous) *github.Client.
func New(gh *gogithub.Client, log *slog.Logger) *Lister {
	return &Lister{gh: gh, log: log}
}

// List returns every file under ref.Directory. A truncated tree listing is
// replaced by a full walk of the contents API.
func (l *Lister) List(ctx context.Context, ref config.RepoRef) ([]config.FileEntry, error) {
	listing, err := l.ListTree(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !listing.Truncated {
		return listing.Files, nil
	}

	l.log.Warn("tree listing truncated, walking directory contents instead",
		"repo", ref.RepoFullName(), "directory", ref.Directory)
	return l.ListContentsRecursive(ctx, ref)
}

// ListTree fetches the recursive git tree of ref and keeps the blobs under
// ref.Directory. FileEntry.URL is the blob's API URL.
func (l *Lister) ListTree(ctx context.Context, ref config.RepoRef) (Listing, error) {
	tree, _, err := l.gh.Git.GetTree(ctx, ref.Owner, ref.Repo, ref.RefOrHead(), true)
	if err != nil {
		return Listing{}, translate(fmt.Errorf("get tree %s@%s: %w", ref.RepoFullName(), ref.RefOrHead(), err))
	}

	prefix := ref.DirPrefix()
	var files []config.FileEntry
	for _, e := range tree.Entries {
		if e.GetType() != "blob" {
			continue
		}
		if prefix != "" && !strings.HasPrefix(e.GetPath(), prefix) {
			continue
		}
		files = append(files, config.FileEntry{
			Path: e.GetPath(),
			URL:  e.GetURL(),
			Size: int64(e.GetSize()),
		})
	}

	l.log.Debug("listed tree", "repo", ref.RepoFullName(), "files", len(files), "truncated", tree.GetTruncated())
	return Listing{Files: files, Truncated: tree.GetTruncated()}, nil
}

// ListContentsRecursive walks ref.Directory depth-first through the contents
// API. It needs one request per directory but is never truncated.
func (l *Lister) ListContentsRecursive(ctx context.Context, ref config.RepoRef) ([]config.FileEntry, error) {
	var files []config.FileEntry
	if err := l.walk(ctx, ref, strings.Trim(ref.Directory, "/"), &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (l *Lister) walk(ctx context.Context, ref config.RepoRef, dir string, files *[]config.FileEntry) error {
	var opts *gogithub.RepositoryContentGetOptions
	if ref.Ref != "" {
		opts = &gogithub.RepositoryContentGetOptions{Ref: ref.Ref}
	}

	file, entries, _, err := l.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, dir, opts)
	if err != nil {
		return translate(fmt.Errorf("get contents %s/%s: %w", ref.RepoFullName(), dir, err))
	}
	if file != nil {
		return fmt.Errorf("path %s is a file, not a directory", dir)
	}

	for _, e := range entries {
		switch e.GetType() {
		case "dir":
			if err := l.walk(ctx, ref, e.GetPath(), files); err != nil {
				return err
			}
		case "file":
			*files = append(*files, config.FileEntry{
				Path: e.GetPath(),
				URL:  e.GetURL(),
				Size: int64(e.GetSize()),
			})
		default:
			l.log.Debug("skipping entry", "path", e.GetPath(), "type", e.GetType())
		}
	}
	return nil
}

// translate maps go-github's error types onto the gateway taxonomy so
// callers handle rate limits and bad tokens the same way everywhere.
func translate(err error) error {
	var rl *gogithub.RateLimitError
	if errors.As(err, &rl) {
		return rateLimit(rl.Rate.Reset.Time)
	}

	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &abuse) {
		if d := abuse.GetRetryAfter(); d > 0 {
			return rateLimit(time.Now().Add(d))
		}
		return gateway.RateLimitError{}
	}

	var resp *gogithub.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil && resp.Response.StatusCode == http.StatusUnauthorized {
		return gateway.AuthenticationError{}
	}
	return err
}

func rateLimit(reset time.Time) gateway.RateLimitError {
	if reset.IsZero() {
		return gateway.RateLimitError{}
	}
	minutes := int(math.Ceil(time.Until(reset).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	return gateway.RateLimitError{Reset: reset, Minutes: minutes}
}
