// Package gateway wraps outbound GitHub HTTP calls. It injects the bearer
// token and client identification headers and turns GitHub's auth and rate
// limit statuses into typed errors. Other statuses are returned to the caller.
package gateway

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// UserAgent identifies ghdir to GitHub on every request.
const UserAgent = "ghdir (GitHub-Directory-Downloader)"

const maxErrorBody = 64 << 10

// Endpoints holds the base URLs of the GitHub hosts ghdir talks to.
type Endpoints struct {
	API   string // REST API
	Raw   string // raw file content for public repositories
	Media string // Git LFS object content
}

// DefaultEndpoints returns the public github.com hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		API:   "https://api.github.com",
		Raw:   "https://raw.githubusercontent.com",
		Media: "https://media.githubusercontent.com/media",
	}
}

// Gateway performs HTTP requests against GitHub.
type Gateway struct {
	client *http.Client
	log    *slog.Logger
	now    func() time.Time
}

// New creates a Gateway. A nil client means http.DefaultClient.
func New(client *http.Client, log *slog.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{client: client, log: log, now: time.Now}
}

// WithClock returns a copy of the gateway that uses now for rate limit
// arithmetic.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	cp := *g
	cp.now = now
	return &cp
}

// Get issues a GET request.
func (g *Gateway) Get(ctx context.Context, url, token string) (*http.Response, error) {
	return g.Do(ctx, http.MethodGet, url, token)
}

// Head issues a HEAD request.
func (g *Gateway) Head(ctx context.Context, url, token string) (*http.Response, error) {
	return g.Do(ctx, http.MethodHead, url, token)
}

// Do sends the request and interprets GitHub-specific statuses:
//
//	401         AuthenticationError
//	403 / 429   RateLimitError when X-RateLimit-Remaining is 0
//	403         AccessForbiddenError otherwise
//
// Every other response, including 404, is returned with its body unread.
// A request aborted through ctx returns the context's cancel cause.
func (g *Gateway) Do(ctx context.Context, method, url, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", UserAgent)

	g.log.Debug("fetching", "method", method, "url", url)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		g.log.Error("fetch error", "url", url, "error", err)
		return nil, &FetchError{URL: url, Err: err}
	}

	g.log.Debug("response", "url", url, "status", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		Close(resp)
		return nil, AuthenticationError{}

	case http.StatusForbidden, http.StatusTooManyRequests:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			Close(resp)
			rl := g.rateLimit(resp.Header.Get("X-RateLimit-Reset"))
			g.log.Error("rate limit exceeded", "url", url, "reset", rl.Reset, "minutes", rl.Minutes)
			return nil, rl
		}
		if resp.StatusCode == http.StatusForbidden {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			Close(resp)
			g.log.Error("access forbidden", "url", url, "body", string(body))
			return nil, AccessForbiddenError{Body: string(body)}
		}
		g.log.Warn("too many requests", "url", url)

	default:
		if OK(resp) {
			break
		}
		// HEAD requests are existence probes; a miss is an expected answer.
		level := slog.LevelWarn
		if method == http.MethodHead {
			level = slog.LevelDebug
		}
		msg := "unexpected response status"
		if resp.StatusCode == http.StatusNotFound {
			msg = "resource not found"
		}
		g.log.Log(ctx, level, msg, "method", method, "url", url, "status", resp.StatusCode)
	}

	return resp, nil
}

// rateLimit builds a RateLimitError from the X-RateLimit-Reset header
// (epoch seconds).
func (g *Gateway) rateLimit(reset string) RateLimitError {
	secs, err := strconv.ParseInt(reset, 10, 64)
	if err != nil || reset == "" {
		return RateLimitError{}
	}
	at := time.Unix(secs, 0)
	minutes := int(math.Ceil(at.Sub(g.now()).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	return RateLimitError{Reset: at, Minutes: minutes}
}

// OK reports whether the response has a 2xx status.
func OK(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// Close discards what is left of the body and closes it so the connection
// can be reused.
func Close(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
