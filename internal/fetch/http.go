// internal/fetch/http.go
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/healthmart/catalogsync/internal/utils"
)

var httpLogger = utils.NewComponentLogger("fetch-http")

// HTTPFetcher is the lightweight strategy: a plain HTTP client with
// browser-like headers and bounded redirect following. It is fast but
// blind to client-rendered content.
type HTTPFetcher struct {
	client  *http.Client
	profile HeaderProfile
	limit   int
}

// HTTPConfig configures the lightweight fetcher.
type HTTPConfig struct {
	Profile      HeaderProfile
	Timeout      time.Duration
	MaxRedirects int
}

// NewHTTPFetcher creates the lightweight HTTP strategy.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}

	limit := cfg.MaxRedirects
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return &RedirectLoopError{URL: via[0].URL.String(), Limit: limit}
			}
			return nil
		},
	}

	return &HTTPFetcher{
		client:  client,
		profile: cfg.Profile,
		limit:   limit,
	}
}

// Fetch performs a single GET. Redirects up to the bound are followed
// transparently; nothing is retried here.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		var loop *RedirectLoopError
		if urlErr, ok := err.(*url.Error); ok {
			if le, ok := urlErr.Err.(*RedirectLoopError); ok {
				loop = le
			}
		}
		if loop != nil {
			return nil, loop
		}
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	httpLogger.Debugf("fetched %s (%d, %d bytes)", rawURL, resp.StatusCode, len(body))

	return &Result{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Body:       body,
		Strategy:   StrategyHTTP,
	}, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	if t, ok := f.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	if f.profile.UserAgent != "" {
		req.Header.Set("User-Agent", f.profile.UserAgent)
	}
	if f.profile.Referer != "" {
		req.Header.Set("Referer", f.profile.Referer)
	}
	if f.profile.Accept != "" {
		req.Header.Set("Accept", f.profile.Accept)
	}
	if f.profile.Language != "" {
		req.Header.Set("Accept-Language", f.profile.Language)
	}
}
