// internal/fetch/browser.go
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/healthmart/catalogsync/internal/utils"
)

var browserLogger = utils.NewComponentLogger("fetch-browser")

// BrowserFetcher is the headless strategy. It drives a Chrome instance
// through chromedp and returns the rendered DOM, which is the only way
// to see results on JavaScript-heavy targets such as image search
// engines. Markedly slower than HTTPFetcher; route only known-JS-heavy
// hosts here.
type BrowserFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	profile     HeaderProfile
	timeout     time.Duration
}

// BrowserConfig configures the headless strategy.
type BrowserConfig struct {
	Profile HeaderProfile
	Timeout time.Duration
}

// NewBrowserFetcher starts a headless Chrome allocator. The returned
// fetcher must be closed to release the browser process.
func NewBrowserFetcher(cfg BrowserConfig) (*BrowserFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // required in container environments
		chromedp.Headless,
	}
	if cfg.Profile.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Profile.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		profile:     cfg.Profile,
		timeout:     cfg.Timeout,
	}, nil
}

// Fetch navigates to the URL in a fresh tab, waits for the body to be
// ready, and returns the rendered HTML. The status code is reported as
// 200 on success; navigation failures surface as NetworkError.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	tabCtx, cancel := chromedp.NewContext(f.allocCtx)
	defer cancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, f.timeout)
	defer timeoutCancel()

	// Honor caller cancellation alongside the tab timeout.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-tabCtx.Done():
		}
	}()

	var html string
	start := time.Now()
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("browser navigation: %w", err)}
	}

	browserLogger.Debugf("rendered %s in %v (%d bytes)", rawURL, time.Since(start), len(html))

	return &Result{
		URL:        rawURL,
		FinalURL:   rawURL,
		StatusCode: 200,
		Body:       []byte(html),
		Strategy:   StrategyBrowser,
	}, nil
}

// Close shuts down the browser allocator.
func (f *BrowserFetcher) Close() error {
	f.allocCancel()
	return nil
}
