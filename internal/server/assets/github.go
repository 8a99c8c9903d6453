package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubFetcher reads a single file through the repository contents API
// using the raw media type, so the body is the file itself.
type GitHubFetcher struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewGitHubFetcher uses token when a locator carries none. A nil client
// means http.DefaultClient.
func NewGitHubFetcher(baseURL, token string, client *http.Client) *GitHubFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultGitHubAPIURL
	}
	return &GitHubFetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

func (f *GitHubFetcher) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.contentsURL(loc), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	token := loc.Token
	if token == "" {
		token = f.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: github status %d", ErrUpstream, resp.StatusCode)
	}

	return readLimited(ctx, resp.Body)
}

func (f *GitHubFetcher) contentsURL(loc Locator) string {
	segments := strings.Split(strings.Trim(loc.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		f.baseURL, url.PathEscape(loc.Owner), url.PathEscape(loc.Repo), strings.Join(segments, "/"))
}

func readLimited(ctx context.Context, r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxAssetSize+1))
	if err != nil {
		return nil, classify(ctx, err)
	}
	if len(b) > MaxAssetSize {
		return nil, ErrTooLarge
	}
	return b, nil
}
