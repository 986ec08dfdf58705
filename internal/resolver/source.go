package resolver

import (
	"context"

	"github.com/cbout22/ghdir/internal/config"
)

// Source resolves a GitHub URL into a repository reference.
type Source interface {
	// Resolve returns the RepoRef a URL points at, or a *ResolutionError.
	Resolve(ctx context.Context, rawURL, token string) (config.RepoRef, error)
}

var _ Source = (*Resolver)(nil)
