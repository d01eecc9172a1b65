// internal/fetch/cache.go
package fetch

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver for the page cache

	"github.com/healthmart/catalogsync/internal/utils"
)

var cacheLogger = utils.NewComponentLogger("fetch-cache")

// CachingFetcher wraps another Fetcher with a local SQLite page cache.
// Re-running a script against pages fetched within the TTL skips the
// network entirely, which keeps whole-run retries cheap and polite.
// Only successful responses are cached; errors always hit the network
// again on the next run.
type CachingFetcher struct {
	inner Fetcher
	db    *sql.DB
	ttl   time.Duration
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS page_cache (
	url        TEXT PRIMARY KEY,
	final_url  TEXT NOT NULL,
	status     INTEGER NOT NULL,
	body       BLOB NOT NULL,
	strategy   TEXT NOT NULL DEFAULT 'http',
	fetched_at INTEGER NOT NULL
);
`

// NewCachingFetcher opens (creating if needed) the cache database at
// path and wraps inner with it.
func NewCachingFetcher(inner Fetcher, path string, ttl time.Duration) (*CachingFetcher, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize page cache schema: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &CachingFetcher{inner: inner, db: db, ttl: ttl}, nil
}

// Fetch returns a cached body when a fresh entry exists, otherwise
// delegates to the wrapped fetcher and stores the result.
func (c *CachingFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if res, ok := c.lookup(ctx, rawURL); ok {
		cacheLogger.Debugf("cache hit for %s", rawURL)
		return res, nil
	}

	res, err := c.inner.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	c.store(ctx, res)
	return res, nil
}

// Close closes the cache database and the wrapped fetcher.
func (c *CachingFetcher) Close() error {
	innerErr := c.inner.Close()
	if err := c.db.Close(); err != nil {
		return err
	}
	return innerErr
}

// Purge drops entries older than the TTL. Called opportunistically by
// the orchestrator at run start.
func (c *CachingFetcher) Purge(ctx context.Context) error {
	cutoff := time.Now().Add(-c.ttl).Unix()
	_, err := c.db.ExecContext(ctx, `DELETE FROM page_cache WHERE fetched_at < ?`, cutoff)
	return err
}

func (c *CachingFetcher) lookup(ctx context.Context, rawURL string) (*Result, bool) {
	var (
		finalURL  string
		status    int
		body      []byte
		strategy  string
		fetchedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT final_url, status, body, strategy, fetched_at FROM page_cache WHERE url = ?`, rawURL).
		Scan(&finalURL, &status, &body, &strategy, &fetchedAt)
	if err != nil {
		return nil, false
	}
	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, false
	}
	return &Result{
		URL:        rawURL,
		FinalURL:   finalURL,
		StatusCode: status,
		Body:       body,
		Strategy:   strategy,
		FromCache:  true,
	}, true
}

func (c *CachingFetcher) store(ctx context.Context, res *Result) {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO page_cache (url, final_url, status, body, strategy, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   final_url = excluded.final_url,
		   status = excluded.status,
		   body = excluded.body,
		   strategy = excluded.strategy,
		   fetched_at = excluded.fetched_at`,
		res.URL, res.FinalURL, res.StatusCode, res.Body, res.Strategy, time.Now().Unix())
	if err != nil {
		// A failed cache write must not fail the fetch.
		cacheLogger.Warnf("failed to cache %s: %v", res.URL, err)
	}
}
