// Package downloader fetches the content of a single repository file.
//
// Public repositories are read from the raw content host, with Git LFS
// pointers followed to the media host. Private repositories are read through
// the API URL the lister supplied, whose JSON envelope carries the content
// base64 encoded. Each fetch is wrapped in a retry.Policy.
package downloader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/cbout22/ghdir/internal/config"
	"github.com/cbout22/ghdir/internal/gateway"
	"github.com/cbout22/ghdir/internal/retry"
)

// LFSSignature is the first line of every Git LFS pointer file.
const LFSSignature = "version https://git-lfs.github.com/spec/v1"

// Pointer files are only inspected when their length falls strictly inside
// this window, so ordinary small files are never read twice.
const (
	lfsMinLength = 128
	lfsMaxLength = 140
)

// StatusError is a non-2xx response for a single file.
type StatusError struct {
	Path   string
	Status string // e.g. "404 Not Found"
	Code   int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %s for %s", e.Status, e.Path)
}

// Downloader fetches file contents through the gateway.
type Downloader struct {
	gw        *gateway.Gateway
	endpoints gateway.Endpoints
	policy    retry.Policy
	log       *slog.Logger
}

// New creates a Downloader. A nil policy means retry.NewExponential with the
// default retry count.
func New(gw *gateway.Gateway, endpoints gateway.Endpoints, policy retry.Policy, log *slog.Logger) *Downloader {
	if policy == nil {
		policy = retry.NewExponential(retry.DefaultRetries)
	}
	return &Downloader{gw: gw, endpoints: endpoints, policy: policy, log: log}
}

// Download returns the bytes of file, retrying failed attempts according to
// the policy. Each failure is logged with the attempt number and the number
// of retries left.
func (d *Downloader) Download(ctx context.Context, ref config.RepoRef, file config.FileEntry, token string) ([]byte, error) {
	var data []byte
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		if ref.Private {
			data, err = d.fetchPrivate(ctx, file, token)
		} else {
			data, err = d.fetchPublic(ctx, ref, file, token)
		}
		return err
	}, func(a retry.Attempt) {
		d.log.Warn("download attempt failed",
			"path", file.Path,
			"attempt", a.Number,
			"retries_left", a.RetriesLeft,
			"error", a.Err,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", file.Path, err)
	}
	return data, nil
}

func (d *Downloader) fetchPublic(ctx context.Context, ref config.RepoRef, file config.FileEntry, token string) ([]byte, error) {
	resp, err := d.gw.Get(ctx, ContentURL(d.endpoints.Raw, ref, file.Path), token)
	if err != nil {
		return nil, err
	}
	defer gateway.Close(resp)

	if !gateway.OK(resp) {
		return nil, &StatusError{Path: file.Path, Status: resp.Status, Code: resp.StatusCode}
	}

	if resp.ContentLength <= lfsMinLength || resp.ContentLength >= lfsMaxLength {
		return io.ReadAll(resp.Body)
	}

	head, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(head, []byte(LFSSignature)) {
		return head, nil
	}

	d.log.Debug("following LFS pointer", "path", file.Path)
	media, err := d.gw.Get(ctx, ContentURL(d.endpoints.Media, ref, file.Path), token)
	if err != nil {
		return nil, err
	}
	defer gateway.Close(media)

	if !gateway.OK(media) {
		return nil, &StatusError{Path: file.Path, Status: media.Status, Code: media.StatusCode}
	}
	return io.ReadAll(media.Body)
}

// blobEnvelope covers both the git blobs and the contents API responses.
type blobEnvelope struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (d *Downloader) fetchPrivate(ctx context.Context, file config.FileEntry, token string) ([]byte, error) {
	if file.URL == "" {
		return nil, retry.Stop(fmt.Errorf("no API URL for %s", file.Path))
	}

	resp, err := d.gw.Get(ctx, file.URL, token)
	if err != nil {
		return nil, err
	}
	defer gateway.Close(resp)

	if !gateway.OK(resp) {
		return nil, &StatusError{Path: file.Path, Status: resp.Status, Code: resp.StatusCode}
	}

	var env blobEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding content envelope for %s: %w", file.Path, err)
	}
	if env.Encoding != "" && env.Encoding != "base64" {
		return nil, retry.Stop(fmt.Errorf("unsupported content encoding %q for %s", env.Encoding, file.Path))
	}

	// The API wraps base64 at 60 columns; the decoder skips the newlines.
	data, err := base64.StdEncoding.DecodeString(env.Content)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 content for %s: %w", file.Path, err)
	}
	return data, nil
}

// ContentURL builds {base}/{owner}/{repo}/{ref}/{path} with every path
// segment escaped, so characters such as '#' and '?' stay part of the path.
func ContentURL(base string, ref config.RepoRef, path string) string {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		strings.TrimSuffix(base, "/"), ref.Owner, ref.Repo, ref.RefOrHead(), strings.Join(segs, "/"))
}
