package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider fetches a remote plain wordlist.
type HTTPProvider struct {
	URL    string
	Client *http.Client
}

// NewHTTP creates a provider for rawURL. A nil client gets a default with a
// generous timeout; wordlists can be large.
func NewHTTP(rawURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &HTTPProvider{URL: rawURL, Client: client}
}

func (p *HTTPProvider) Name() string { return "remote " + p.URL }

func (p *HTTPProvider) Check() error {
	u, err := url.Parse(p.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: unsupported wordlist url %q", ErrConfig, p.URL)
	}
	return nil
}

func (p *HTTPProvider) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p.URL, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", p.URL, resp.StatusCode)
	}
	return resp.Body, nil
}
