// internal/fetch/fetch.go

// Package fetch retrieves remote HTML pages for the reconciliation
// pipeline. Two strategies are provided: a lightweight HTTP client and a
// chromedp-backed headless browser for targets that render their results
// client-side. Strategy selection is driven by a target-site profile, not
// by runtime capability probing.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Strategy names for Result.Strategy.
const (
	StrategyHTTP    = "http"
	StrategyBrowser = "browser"
)

// Result is a fetched page body plus response metadata. Strategy records
// which fetcher produced the body and survives a cache round-trip.
type Result struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	Strategy   string
	FromCache  bool
}

// Fetcher retrieves one URL. Implementations do not retry transient
// failures; retry policy belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
	Close() error
}

// HeaderProfile holds the browser-like request headers applied to every
// outbound call.
type HeaderProfile struct {
	UserAgent string
	Referer   string
	Accept    string
	Language  string
}

// DefaultHeaderProfile returns a profile mimicking a common desktop
// browser, with the Referer pinned to the storefront origin.
func DefaultHeaderProfile(userAgent, siteBaseURL string) HeaderProfile {
	return HeaderProfile{
		UserAgent: userAgent,
		Referer:   siteBaseURL,
		Accept:    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		Language:  "en-US,en;q=0.9",
	}
}

// NetworkError reports a DNS, connection, or timeout failure.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. A 404 is a legitimate "page
// absent" outcome for catalog pages, not a fault; callers decide.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.Status, e.URL)
}

// NotFound reports whether the error is an HTTPError with status 404.
func (e *HTTPError) NotFound() bool { return e.Status == 404 }

// RedirectLoopError reports that a fetch exceeded the redirect bound.
type RedirectLoopError struct {
	URL   string
	Limit int
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("more than %d redirects fetching %s", e.Limit, e.URL)
}

// Selector routes each URL to the lightweight or headless strategy based
// on a list of host substrings known to require JavaScript rendering.
type Selector struct {
	lightweight   Fetcher
	headless      Fetcher
	headlessHosts []string
}

// NewSelector builds a strategy selector. headless may be nil when no
// browser is available; headless-profile URLs then fall through to the
// lightweight client.
func NewSelector(lightweight, headless Fetcher, headlessHosts []string) *Selector {
	return &Selector{
		lightweight:   lightweight,
		headless:      headless,
		headlessHosts: headlessHosts,
	}
}

// Fetch dispatches to the strategy the target's profile calls for.
func (s *Selector) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if s.headless != nil && s.needsHeadless(rawURL) {
		return s.headless.Fetch(ctx, rawURL)
	}
	return s.lightweight.Fetch(ctx, rawURL)
}

// Close closes both underlying strategies.
func (s *Selector) Close() error {
	var firstErr error
	if err := s.lightweight.Close(); err != nil {
		firstErr = err
	}
	if s.headless != nil {
		if err := s.headless.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Selector) needsHeadless(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, h := range s.headlessHosts {
		if h != "" && strings.Contains(host, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
