package importer

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/go-faster/errors"
)

// Fetcher loads the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// URLFetcher fetches http(s) URLs with an HTTP client and file URLs or bare
// paths from disk. Every call is attempted once.
type URLFetcher struct {
	client *http.Client
}

var _ Fetcher = (*URLFetcher)(nil)

// NewURLFetcher creates a URLFetcher. A nil client selects http.DefaultClient.
func NewURLFetcher(client *http.Client) *URLFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &URLFetcher{client: client}
}

// Fetch returns the body behind rawURL.
func (f *URLFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}

	switch u.Scheme {
	case "http", "https":
		return f.get(ctx, u.String())
	case "file":
		return readFile(u.Path)
	case "":
		return readFile(rawURL)
	default:
		return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (f *URLFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	return data, nil
}
