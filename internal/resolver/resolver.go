package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/cbout22/ghdir/internal/config"
	"github.com/cbout22/ghdir/internal/gateway"
)

// treeMarker is the path segment GitHub uses for browsable directory URLs.
const treeMarker = "tree"

var (
	githubPrefix = regexp.MustCompile(`(?i)^(https?://)?(www\.)?github\.com`)
	multiSlash   = regexp.MustCompile(`/{2,}`)
)

// Resolver turns GitHub directory URLs into RepoRefs.
type Resolver struct {
	gw      *gateway.Gateway
	apiBase string
	log     *slog.Logger
}

// New creates a Resolver that queries apiBase through the gateway.
func New(gw *gateway.Gateway, apiBase string, log *slog.Logger) *Resolver {
	return &Resolver{gw: gw, apiBase: strings.TrimSuffix(apiBase, "/"), log: log}
}

// Resolve parses a GitHub URL and determines owner, repository, git reference,
// directory and visibility. When the URL names the whole repository the
// returned RepoRef has an empty Directory; callers that need a subdirectory
// treat that as a usage error.
func (r *Resolver) Resolve(ctx context.Context, rawURL, token string) (config.RepoRef, error) {
	segs := Segments(rawURL)

	if len(segs) < 2 {
		return config.RepoRef{}, &ResolutionError{Code: NotARepository, URL: rawURL}
	}
	owner, repo := segs[0], segs[1]

	if len(segs) > 2 && segs[2] != treeMarker {
		return config.RepoRef{}, &ResolutionError{Code: NotADirectory, URL: rawURL}
	}

	var parts []string
	if len(segs) > 3 {
		parts = segs[3:]
	}

	private, err := r.visibility(ctx, owner, repo, token)
	if err != nil {
		if errors.Is(err, ErrRepositoryNotFound) {
			return config.RepoRef{}, &ResolutionError{Code: RepositoryNotFound, URL: rawURL}
		}
		return config.RepoRef{}, err
	}

	ref := config.RepoRef{Owner: owner, Repo: repo, Private: private}

	switch len(parts) {
	case 0:
		return ref, nil
	case 1:
		ref.Ref = parts[0]
		return ref, nil
	}

	gitRef, dir, err := r.splitRef(ctx, owner, repo, parts, token)
	if err != nil {
		if errors.Is(err, ErrBranchNotFound) {
			return config.RepoRef{}, &ResolutionError{Code: BranchNotFound, URL: rawURL}
		}
		return config.RepoRef{}, err
	}
	ref.Ref = gitRef
	ref.Directory = dir

	r.log.Debug("resolved repository", "ref", ref.String(), "private", ref.Private)
	return ref, nil
}

// splitRef finds where the git reference ends and the directory begins.
// Reference names may contain slashes, so prefixes of parts are probed one
// at a time, shortest first; the first one GitHub knows wins.
func (r *Resolver) splitRef(ctx context.Context, owner, repo string, parts []string, token string) (string, string, error) {
	for i := 1; i <= len(parts); i++ {
		candidate := strings.Join(parts[:i], "/")
		exists, err := r.refExists(ctx, owner, repo, candidate, token)
		if err != nil {
			return "", "", err
		}
		if exists {
			return candidate, strings.Join(parts[i:], "/"), nil
		}
	}
	return "", "", ErrBranchNotFound
}

// refExists probes the commits endpoint for a candidate reference. Transport
// failures count as "does not exist"; auth, rate limit and cancellation
// errors abort resolution.
func (r *Resolver) refExists(ctx context.Context, owner, repo, candidate, token string) (bool, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/commits/%s?per_page=1", r.apiBase, owner, repo, escapeRef(candidate))
	r.log.Debug("checking reference", "url", u)

	resp, err := r.gw.Head(ctx, u, token)
	if err != nil {
		var fetchErr *gateway.FetchError
		if errors.As(err, &fetchErr) {
			r.log.Debug("reference probe failed", "ref", candidate, "error", err)
			return false, nil
		}
		return false, err
	}
	defer gateway.Close(resp)

	return gateway.OK(resp), nil
}

// visibility fetches repository metadata and reports whether it is private.
func (r *Resolver) visibility(ctx context.Context, owner, repo, token string) (bool, error) {
	u := fmt.Sprintf("%s/repos/%s/%s", r.apiBase, owner, repo)

	resp, err := r.gw.Get(ctx, u, token)
	if err != nil {
		return false, fmt.Errorf("fetching repo info for %s/%s: %w", owner, repo, err)
	}
	defer gateway.Close(resp)

	if resp.StatusCode == http.StatusNotFound {
		return false, ErrRepositoryNotFound
	}
	if !gateway.OK(resp) {
		return false, fmt.Errorf("fetching repo info for %s/%s: HTTP %d", owner, repo, resp.StatusCode)
	}

	var info struct {
		Private bool `json:"private"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, fmt.Errorf("decoding repo info: %w", err)
	}
	return info.Private, nil
}

// Segments returns the non-empty, percent-decoded path segments of a GitHub
// URL. Malformed URLs fall back to stripping the github.com prefix, so this
// never fails.
func Segments(rawURL string) []string {
	var segs []string
	for _, s := range strings.Split(CleanPath(rawURL), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// CleanPath extracts the path of a GitHub URL, collapsing repeated slashes
// and dropping the trailing one.
func CleanPath(rawURL string) string {
	p, err := urlPath(rawURL)
	if err != nil {
		p = githubPrefix.ReplaceAllString(strings.TrimSpace(rawURL), "")
		if dec, derr := url.PathUnescape(p); derr == nil {
			p = dec
		}
	}
	p = strings.TrimSpace(p)
	p = multiSlash.ReplaceAllString(p, "/")
	return strings.TrimSuffix(p, "/")
}

func urlPath(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", rawURL)
	}
	// u.Path is already percent-decoded.
	return u.Path, nil
}

func escapeRef(ref string) string {
	segs := strings.Split(ref, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
