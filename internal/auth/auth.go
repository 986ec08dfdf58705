package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// githubTokenEnvVars lists the environment variables checked for a GitHub token,
// in priority order.
var githubTokenEnvVars = []string{
	"GITHUB_TOKEN",
	"GH_TOKEN",
}

const defaultAPIURL = "https://api.github.com"

// Token returns the GitHub personal access token from the environment.
// It checks GITHUB_TOKEN first, then GH_TOKEN.
func Token() (string, error) {
	for _, env := range githubTokenEnvVars {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf(
		"no GitHub token found: set %s or %s in your environment",
		githubTokenEnvVars[0], githubTokenEnvVars[1],
	)
}

// ResolveToken picks the token to use: an explicit flag value wins, then the
// config file, then the environment. An empty result means unauthenticated
// requests, which work for public repositories under a lower rate limit.
func ResolveToken(flagValue, configValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(configValue); v != "" {
		return v
	}
	tok, err := Token()
	if err != nil {
		return ""
	}
	return tok
}

// NewGitHubClient creates a go-github client, authenticated when token is
// non-empty. Pass apiURL="" for api.github.com, or a test server URL.
func NewGitHubClient(ctx context.Context, token, apiURL string, base *http.Client) *gogithub.Client {
	httpClient := base
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		if base != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		}
		httpClient = oauth2.NewClient(ctx, ts)
	}

	c := gogithub.NewClient(httpClient)
	applyBaseURL(c, apiURL)
	return c
}

func applyBaseURL(c *gogithub.Client, apiURL string) {
	if apiURL == "" || apiURL == defaultAPIURL {
		return
	}
	u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
	if err != nil {
		return
	}
	c.BaseURL = u
}
