package lister

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v75/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbout22/ghdir/internal/config"
	"github.com/cbout22/ghdir/internal/gateway"
	"github.com/cbout22/ghdir/internal/logging"
)

var srcRef = config.RepoRef{Owner: "octo", Repo: "proj", Ref: "main", Directory: "src"}

func newTestLister(t *testing.T, mux *http.ServeMux) *Lister {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	gh := gogithub.NewClient(ts.Client())
	base, err := url.Parse(ts.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base
	return New(gh, logging.Discard())
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size,omitempty"`
	URL  string `json:"url,omitempty"`
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func TestListTree_FiltersToDirectory(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/proj/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(t, w, map[string]any{
			"sha": "abc",
			"tree": []treeEntry{
				{Path: "README.md", Type: "blob", Size: 10},
				{Path: "src", Type: "tree"},
				{Path: "src/a.txt", Type: "blob", Size: 5, URL: "https://api/blobs/1"},
				{Path: "src/lib", Type: "tree"},
				{Path: "src/lib/b.go", Type: "blob", Size: 7, URL: "https://api/blobs/2"},
				{Path: "srcfoo/c.txt", Type: "blob", Size: 1},
				{Path: "src/vendor", Type: "commit"},
			},
			"truncated": false,
		})
	})
	l := newTestLister(t, mux)

	listing, err := l.ListTree(context.Background(), srcRef)
	require.NoError(t, err)

	assert.False(t, listing.Truncated)
	assert.Equal(t, []config.FileEntry{
		{Path: "src/a.txt", URL: "https://api/blobs/1", Size: 5},
		{Path: "src/lib/b.go", URL: "https://api/blobs/2", Size: 7},
	}, listing.Files)
}

func TestListTree_DefaultBranchUsesHEAD(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/proj/git/trees/HEAD", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"sha": "abc", "tree": []treeEntry{{Path: "docs/x.md", Type: "blob"}}})
	})
	l := newTestLister(t, mux)

	listing, err := l.ListTree(context.Background(), config.RepoRef{Owner: "octo", Repo: "proj", Directory: "docs"})
	require.NoError(t, err)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "docs/x.md", listing.Files[0].Path)
}

func TestList_FallsBackWhenTruncated(t *testing.T) {
	t.Parallel()

	var contentCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/proj/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"sha":       "abc",
			"tree":      []treeEntry{{Path: "src/a.txt", Type: "blob"}},
			"truncated": true,
		})
	})
	mux.HandleFunc("/repos/octo/proj/contents/src", func(w http.ResponseWriter, r *http.Request) {
		contentCalls.Add(1)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		writeJSON(t, w, []treeEntry{
			{Path: "src/a.txt", Type: "file", Size: 5, URL: "https://api/contents/src/a.txt"},
			{Path: "src/lib", Type: "dir"},
			{Path: "src/link", Type: "symlink"},
		})
	})
	mux.HandleFunc("/repos/octo/proj/contents/src/lib", func(w http.ResponseWriter, r *http.Request) {
		contentCalls.Add(1)
		writeJSON(t, w, []treeEntry{
			{Path: "src/lib/b.go", Type: "file", Size: 7, URL: "https://api/contents/src/lib/b.go"},
		})
	})
	l := newTestLister(t, mux)

	files, err := l.List(context.Background(), srcRef)
	require.NoError(t, err)

	assert.Equal(t, []config.FileEntry{
		{Path: "src/a.txt", URL: "https://api/contents/src/a.txt", Size: 5},
		{Path: "src/lib/b.go", URL: "https://api/contents/src/lib/b.go", Size: 7},
	}, files)
	assert.Equal(t, int32(2), contentCalls.Load())
}

func TestList_NoFallbackWhenComplete(t *testing.T) {
	t.Parallel()

	var contentCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/proj/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"sha": "abc", "tree": []treeEntry{{Path: "src/a.txt", Type: "blob"}}})
	})
	mux.HandleFunc("/repos/octo/proj/contents/", func(w http.ResponseWriter, r *http.Request) {
		contentCalls.Add(1)
		http.NotFound(w, r)
	})
	l := newTestLister(t, mux)

	files, err := l.List(context.Background(), srcRef)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Zero(t, contentCalls.Load())
}

func TestListTree_RateLimit(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(10 * time.Minute).Unix()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/proj/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded for 127.0.0.1."}`))
	})
	l := newTestLister(t, mux)

	_, err := l.ListTree(context.Background(), srcRef)

	var rl gateway.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.InDelta(t, 10, rl.Minutes, 1)
}

func TestListTree_Unauthorized(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/proj/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	})
	l := newTestLister(t, mux)

	_, err := l.ListTree(context.Background(), srcRef)

	var authErr gateway.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestListContentsRecursive_RejectsFile(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/proj/contents/src", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, treeEntry{Path: "src", Type: "file", Size: 3})
	})
	l := newTestLister(t, mux)

	_, err := l.ListContentsRecursive(context.Background(), srcRef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
