package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/cbout22/ghdir/internal/auth"
	"github.com/cbout22/ghdir/internal/config"
	"github.com/cbout22/ghdir/internal/downloader"
	"github.com/cbout22/ghdir/internal/gateway"
	"github.com/cbout22/ghdir/internal/lister"
	"github.com/cbout22/ghdir/internal/logging"
	"github.com/cbout22/ghdir/internal/orchestrator"
	"github.com/cbout22/ghdir/internal/resolver"
	"github.com/cbout22/ghdir/internal/retry"
)

// env is everything a command touches outside the process. Tests swap in
// httptest endpoints and an in-memory filesystem.
type env struct {
	// in answers the confirmation prompt. nil disables the prompt.
	in         io.Reader
	out        io.Writer
	logOut     io.Writer
	fs         afero.Fs
	endpoints  gateway.Endpoints
	httpClient *http.Client
	// policy overrides the exponential retry policy built from settings.
	policy retry.Policy
}

func defaultEnv() env {
	var in io.Reader
	if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		in = os.Stdin
	}
	return env{
		in:        in,
		out:       os.Stdout,
		logOut:    os.Stderr,
		fs:        afero.NewOsFs(),
		endpoints: gateway.DefaultEndpoints(),
	}
}

// errWholeRepository is returned for URLs that name no directory.
var errWholeRepository = errors.New("the URL points to an entire repository, not a specific directory")

// pipeline wires the components for one invocation.
type pipeline struct {
	log   *slog.Logger
	token string

	resolver     resolver.Source
	lister       *lister.Lister
	orchestrator *orchestrator.Orchestrator
	apiBase      string
}

func newPipeline(ctx context.Context, e env, s config.Settings) *pipeline {
	log := logging.WithRun(logging.New(logging.Options{
		Debug:  s.Debug,
		Format: s.LogFormat,
		Output: e.logOut,
	}))

	gw := gateway.New(e.httpClient, log)

	policy := e.policy
	if policy == nil {
		policy = retry.NewExponential(s.Retries)
	}
	dl := downloader.New(gw, e.endpoints, policy, log)

	gh := auth.NewGitHubClient(ctx, s.Token, e.endpoints.API, e.httpClient)

	return &pipeline{
		log:          log,
		token:        s.Token,
		resolver:     resolver.New(gw, e.endpoints.API, log),
		lister:       lister.New(gh, log),
		orchestrator: orchestrator.New(dl, log),
		apiBase:      e.endpoints.API,
	}
}

// resolve validates the URL and resolves it to a directory reference.
func (p *pipeline) resolve(ctx context.Context, rawURL string) (config.RepoRef, error) {
	if !strings.Contains(strings.ToLower(rawURL), "github.com") {
		return config.RepoRef{}, fmt.Errorf("invalid URL %q: must be a github.com URL", rawURL)
	}

	ref, err := p.resolver.Resolve(ctx, rawURL, p.token)
	if err != nil {
		return config.RepoRef{}, fmt.Errorf("resolving %s: %w", rawURL, err)
	}
	if ref.IsWholeRepo() {
		return ref, fmt.Errorf("%w\nDownload the whole repository as an archive instead: %s",
			errWholeRepository, ref.ArchiveURL(p.apiBase))
	}

	p.log.Debug("resolved", "ref", ref.String())
	return ref, nil
}
