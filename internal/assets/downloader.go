// internal/assets/downloader.go
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/healthmart/catalogsync/internal/fetch"
	"github.com/healthmart/catalogsync/internal/utils"
)

var logger = utils.NewComponentLogger("assets")

// DownloadError reports a failed image download: a non-200 status, a
// network failure, or a timeout.
type DownloadError struct {
	URL    string
	Status int // 0 for network failures
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download of %s failed with HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// DownloadResult describes one completed (or skipped) download.
type DownloadResult struct {
	Path    string
	Size    int64
	Skipped bool // destination already existed
}

// Downloader streams validated image URLs to local files. Re-running a
// pipeline is safe: an existing destination short-circuits as a skip,
// and failed downloads never leave partial files behind.
type Downloader struct {
	client  *http.Client
	profile fetch.HeaderProfile
}

// DownloaderConfig configures the asset downloader. Redirect following
// uses the same bounded policy as the page fetcher.
type DownloaderConfig struct {
	Profile      fetch.HeaderProfile
	Timeout      time.Duration
	MaxRedirects int
}

// NewDownloader creates an image downloader.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}

	limit := cfg.MaxRedirects
	return &Downloader{
		profile: cfg.Profile,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= limit {
					return &fetch.RedirectLoopError{URL: via[0].URL.String(), Limit: limit}
				}
				return nil
			},
		},
	}
}

// Download fetches rawURL into destPath. When destPath already exists
// the download is skipped and reported as a success.
func (d *Downloader) Download(ctx context.Context, rawURL, destPath string) (*DownloadResult, error) {
	if info, err := os.Stat(destPath); err == nil {
		logger.Debugf("skipping %s, already present at %s", rawURL, destPath)
		return &DownloadResult{Path: destPath, Size: info.Size(), Skipped: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.profile.UserAgent != "" {
		req.Header.Set("User-Agent", d.profile.UserAgent)
	}
	if d.profile.Referer != "" {
		req.Header.Set("Referer", d.profile.Referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &DownloadError{URL: rawURL, Status: resp.StatusCode}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	size, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil || closeErr != nil {
		// never leave a partial file behind
		os.Remove(destPath)
		if err == nil {
			err = closeErr
		}
		return nil, &DownloadError{URL: rawURL, Err: err}
	}

	logger.Debugf("downloaded %s (%d bytes) to %s", rawURL, size, destPath)
	return &DownloadResult{Path: destPath, Size: size}, nil
}

// Filename derives the deterministic destination filename for one
// product image: sanitized product name, SKU, and image index, with the
// extension carried over from the source URL (default .jpg). Repeated
// runs map the same logical image to the same path.
func Filename(productName, sku string, index int, imageURL string) string {
	slug := utils.Slugify(productName)
	if slug == "" {
		slug = "product"
	}
	slug = utils.Truncate(slug, 60)

	skuSlug := utils.Slugify(sku)
	if skuSlug == "" {
		skuSlug = "nosku"
	}

	return fmt.Sprintf("%s-%s-%d%s", slug, skuSlug, index, extensionOf(imageURL))
}

func extensionOf(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, known := range imageExtensions {
		if ext == known {
			return ext
		}
	}
	return ".jpg"
}
