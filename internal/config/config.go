// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// LoadFromFile loads a sync configuration from a YAML file.
func LoadFromFile(filename string) (*SyncConfig, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads a sync configuration from YAML bytes.
func LoadFromBytes(data []byte) (*SyncConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	var cfg SyncConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads a sync configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*SyncConfig, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// expandEnvironmentVariables substitutes ${VAR} references with values
// from the process environment. Unset variables expand to "".
func expandEnvironmentVariables(data string) string {
	return envVarPattern.ReplaceAllStringFunc(data, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyDefaults(cfg *SyncConfig) {
	if cfg.Name == "" {
		cfg.Name = "catalog-sync"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 5
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime <= 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if cfg.Fetch.Timeout <= 0 {
		cfg.Fetch.Timeout = 20 * time.Second
	}
	if cfg.Fetch.MaxRedirects <= 0 {
		cfg.Fetch.MaxRedirects = 5
	}
	if cfg.Fetch.Delay <= 0 {
		cfg.Fetch.Delay = 500 * time.Millisecond
	}
	if cfg.Fetch.Cache.Enabled {
		if cfg.Fetch.Cache.Path == "" {
			cfg.Fetch.Cache.Path = "data/pagecache.db"
		}
		if cfg.Fetch.Cache.TTL <= 0 {
			cfg.Fetch.Cache.TTL = 24 * time.Hour
		}
	}

	if cfg.Images.Dir == "" {
		cfg.Images.Dir = "data/images"
	}
	if cfg.Images.MaxPerProduct <= 0 {
		cfg.Images.MaxPerProduct = 5
	}
	if cfg.Images.MinPixelArea <= 0 {
		cfg.Images.MinPixelArea = 20000
	}

	if len(cfg.Matching.KnownBrands) == 0 {
		cfg.Matching.KnownBrands = DefaultKnownBrands()
	}
	if len(cfg.Matching.Categories) == 0 {
		cfg.Matching.Categories = DefaultCategories()
	}
	if cfg.Matching.FallbackCategory == "" {
		cfg.Matching.FallbackCategory = "General"
	}
	if cfg.Matching.DefaultStockQuantity <= 0 {
		cfg.Matching.DefaultStockQuantity = 100
	}
	if cfg.Matching.PriceMin <= 0 {
		cfg.Matching.PriceMin = 0.01
	}
	if cfg.Matching.PriceMax <= 0 {
		cfg.Matching.PriceMax = 10000
	}

	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "data"
	}

	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = ":8085"
	}
}

// Validate checks the configuration for contradictions and missing
// required settings.
func (cfg *SyncConfig) Validate() error {
	if cfg.SiteBaseURL == "" {
		return fmt.Errorf("site_base_url is required")
	}
	u, err := url.Parse(cfg.SiteBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site_base_url must be an absolute URL: %q", cfg.SiteBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("site_base_url must use http or https, got %q", u.Scheme)
	}

	switch cfg.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	if cfg.Matching.PriceMin >= cfg.Matching.PriceMax {
		return fmt.Errorf("price_min (%v) must be below price_max (%v)",
			cfg.Matching.PriceMin, cfg.Matching.PriceMax)
	}

	for i, cat := range cfg.Matching.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("matching category %d has an empty name", i)
		}
	}

	return nil
}

// DefaultKnownBrands returns the built-in brand lookup list for the
// health-products domain. Multi-word brand names precede their one-word
// prefixes so longest-prefix selection has candidates to prefer.
func DefaultKnownBrands() []string {
	return []string{
		"Now Foods",
		"Now",
		"Garden of Life",
		"Nature's Way",
		"Nature's Bounty",
		"Nordic Naturals",
		"Jarrow Formulas",
		"Doctor's Best",
		"Life Extension",
		"Natural Factors",
		"Solgar",
		"Thorne",
		"Carlson",
		"Solaray",
		"Bluebonnet",
		"MegaFood",
		"Rainbow Light",
		"Source Naturals",
		"Country Life",
		"Twinlab",
	}
}

// DefaultCategories returns the built-in ordered category keyword table.
// The fallback category carries no keywords: it can never win on score
// and is only assigned explicitly when every score is zero.
func DefaultCategories() []CategoryKeywords {
	return []CategoryKeywords{
		{Name: "Heart Health", Keywords: []string{"heart", "cardiac", "cholesterol", "coq10", "blood pressure"}},
		{Name: "Vitamins", Keywords: []string{"vitamin", "multivitamin", "b-complex", "biotin", "folate"}},
		{Name: "Minerals", Keywords: []string{"magnesium", "zinc", "calcium", "iron", "selenium", "potassium"}},
		{Name: "Omega & Fish Oil", Keywords: []string{"omega", "fish oil", "dha", "epa", "krill", "flaxseed"}},
		{Name: "Joint Support", Keywords: []string{"joint", "glucosamine", "chondroitin", "msm", "collagen"}},
		{Name: "Digestive Health", Keywords: []string{"probiotic", "digestive", "enzyme", "fiber", "gut"}},
		{Name: "Immune Support", Keywords: []string{"immune", "elderberry", "echinacea", "vitamin c"}},
		{Name: "Protein & Fitness", Keywords: []string{"protein", "whey", "creatine", "bcaa", "pre-workout"}},
		{Name: "Herbal Supplements", Keywords: []string{"herbal", "ashwagandha", "turmeric", "ginkgo", "ginseng", "milk thistle"}},
		{Name: "Sleep & Stress", Keywords: []string{"sleep", "melatonin", "stress", "relax", "valerian"}},
		{Name: "General", Keywords: nil},
	}
}
