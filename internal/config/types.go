// internal/config/types.go

// Package config provides configuration types and loading for catalogsync.
// A sync configuration describes the storefront being reconciled, the
// database holding its catalog, fetch behavior toward remote sites, and
// the matching tables injected into the reconciliation steps.
package config

import (
	"time"
)

// SyncConfig is the root configuration for one reconciliation run.
type SyncConfig struct {
	// Name identifies this configuration in logs and reports
	Name string `yaml:"name" json:"name"`

	// SiteBaseURL is the storefront origin; also used as the Referer
	// on outbound requests
	SiteBaseURL string `yaml:"site_base_url" json:"site_base_url"`

	// Database holds catalog store connection settings
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Fetch controls HTTP behavior toward remote pages
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Images controls image validation and download
	Images ImageConfig `yaml:"images" json:"images"`

	// Matching holds the injected brand/category lookup tables
	Matching MatchingConfig `yaml:"matching" json:"matching"`

	// Report controls run-report output
	Report ReportConfig `yaml:"report" json:"report"`

	// Serve controls the optional long-running dashboard mode
	Serve ServeConfig `yaml:"serve,omitempty" json:"serve,omitempty"`
}

// DatabaseConfig defines the catalog store connection.
type DatabaseConfig struct {
	// Driver is "mysql" (default) or "postgres"
	Driver string `yaml:"driver" json:"driver"`

	// DSN is the connection string; supports ${ENV_VAR} expansion
	DSN string `yaml:"dsn" json:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`
}

// FetchConfig defines outbound HTTP behavior.
type FetchConfig struct {
	// UserAgent is sent on every request; defaults to a common
	// desktop browser string
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`

	// Timeout bounds a single HTTP call
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// MaxRedirects bounds transparent 301/302 following
	MaxRedirects int `yaml:"max_redirects,omitempty" json:"max_redirects,omitempty"`

	// Delay is the fixed pause between consecutive network calls
	Delay time.Duration `yaml:"delay,omitempty" json:"delay,omitempty"`

	// HeadlessHosts lists host substrings routed to the browser
	// fetcher instead of the plain HTTP client
	HeadlessHosts []string `yaml:"headless_hosts,omitempty" json:"headless_hosts,omitempty"`

	// Cache enables the local page cache for safe re-runs
	Cache CacheConfig `yaml:"cache,omitempty" json:"cache,omitempty"`
}

// CacheConfig defines the SQLite-backed page cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Path    string        `yaml:"path,omitempty" json:"path,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// ImageConfig defines image validation and download settings.
type ImageConfig struct {
	// Dir is the destination directory for downloaded assets
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`

	// MaxPerProduct caps how many images are kept per product
	MaxPerProduct int `yaml:"max_per_product,omitempty" json:"max_per_product,omitempty"`

	// AllowPromo permits URLs containing banner/promo segments,
	// which are rejected by default
	AllowPromo bool `yaml:"allow_promo,omitempty" json:"allow_promo,omitempty"`

	// MinPixelArea is the declared width*height floor for the
	// largest-image fallback
	MinPixelArea int `yaml:"min_pixel_area,omitempty" json:"min_pixel_area,omitempty"`
}

// MatchingConfig carries the lookup tables injected into the matcher and
// extractor. Keeping these in configuration rather than code makes the
// heuristics testable against alternate tables.
type MatchingConfig struct {
	// KnownBrands is the prefix-match lookup list for brand
	// derivation from product names
	KnownBrands []string `yaml:"known_brands,omitempty" json:"known_brands,omitempty"`

	// Categories is an ordered keyword table; order is the tie-break
	// for equal scores, so it is a list rather than a map
	Categories []CategoryKeywords `yaml:"categories,omitempty" json:"categories,omitempty"`

	// FallbackCategory receives products with no keyword hits
	FallbackCategory string `yaml:"fallback_category,omitempty" json:"fallback_category,omitempty"`

	// DefaultStockQuantity is assumed when a page carries no
	// out-of-stock marker
	DefaultStockQuantity int `yaml:"default_stock_quantity,omitempty" json:"default_stock_quantity,omitempty"`

	// PriceMin/PriceMax bound plausible extracted prices
	PriceMin float64 `yaml:"price_min,omitempty" json:"price_min,omitempty"`
	PriceMax float64 `yaml:"price_max,omitempty" json:"price_max,omitempty"`
}

// CategoryKeywords binds one category name to its scoring keywords.
type CategoryKeywords struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// ReportConfig defines run-report output.
type ReportConfig struct {
	// Dir receives the JSON run report; defaults to ./data
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`

	// Excel additionally writes an .xlsx export for triage
	Excel bool `yaml:"excel,omitempty" json:"excel,omitempty"`
}

// ServeConfig defines the long-running dashboard/scheduler mode.
type ServeConfig struct {
	// Addr is the dashboard listen address, e.g. ":8085"
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`

	// Schedule is a cron expression for periodic syncs; empty
	// disables scheduling
	Schedule string `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}
