// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/healthmart/catalogsync/internal/assets"
	"github.com/healthmart/catalogsync/internal/catalog"
	"github.com/healthmart/catalogsync/internal/extract"
	"github.com/healthmart/catalogsync/internal/fetch"
	"github.com/healthmart/catalogsync/internal/monitoring"
	"github.com/healthmart/catalogsync/internal/report"
)

// fakeFetcher serves canned pages by URL.
type fakeFetcher struct {
	pages    map[string]string
	errs     map[string]error
	strategy string
	calls    []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*fetch.Result, error) {
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &fetch.HTTPError{URL: rawURL, Status: 404}
	}
	return &fetch.Result{URL: rawURL, FinalURL: rawURL, StatusCode: 200, Body: []byte(body), Strategy: f.strategy}, nil
}

func (f *fakeFetcher) Close() error { return nil }

// fakeCatalog is an in-memory Catalog.
type fakeCatalog struct {
	missing  []*catalog.Product
	noImages []*catalog.Product
	bySlug   map[string]*catalog.Product
	images   []catalog.ProductImage
}

func (c *fakeCatalog) ProductsMissingData(context.Context) ([]*catalog.Product, error) {
	return c.missing, nil
}
func (c *fakeCatalog) ProductsWithoutImages(context.Context) ([]*catalog.Product, error) {
	return c.noImages, nil
}
func (c *fakeCatalog) ProductsWithoutBrand(context.Context) ([]*catalog.Product, error) {
	return nil, nil
}
func (c *fakeCatalog) ProductsWithoutCategory(context.Context) ([]*catalog.Product, error) {
	return nil, nil
}
func (c *fakeCatalog) ProductBySlug(_ context.Context, slug string) (*catalog.Product, error) {
	if p, ok := c.bySlug[slug]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}
func (c *fakeCatalog) UpsertImage(_ context.Context, img catalog.ProductImage) error {
	c.images = append(c.images, img)
	return nil
}

// fakeMatcher applies the gap-fill policy in memory.
type fakeMatcher struct {
	prices map[int64]float64
	stocks map[int64]int
}

func newFakeMatcher() *fakeMatcher {
	return &fakeMatcher{prices: map[int64]float64{}, stocks: map[int64]int{}}
}

func (m *fakeMatcher) Load(context.Context) error { return nil }
func (m *fakeMatcher) AssignBrand(_ context.Context, p *catalog.Product) (string, error) {
	return "", nil
}
func (m *fakeMatcher) AssignCategory(_ context.Context, p *catalog.Product) (string, error) {
	return "", nil
}
func (m *fakeMatcher) GapFill(_ context.Context, p *catalog.Product, c *extract.Candidate) (catalog.GapFillResult, error) {
	var res catalog.GapFillResult
	if c.HasPrice() && p.PriceUnknown() {
		m.prices[p.ID] = c.Price
		res.PriceUpdated = true
	}
	if p.StockUnknown() && c.StockQuantity > 0 {
		m.stocks[p.ID] = c.StockQuantity
		res.StockUpdated = true
	}
	return res, nil
}

// fakeDownloader pretends every download succeeds.
type fakeDownloader struct {
	downloads []string
}

func (d *fakeDownloader) Download(_ context.Context, rawURL, destPath string) (*assets.DownloadResult, error) {
	d.downloads = append(d.downloads, rawURL)
	return &assets.DownloadResult{Path: destPath, Size: 1024}, nil
}

func testPipeline(cfg Config, f fetch.Fetcher, store Catalog, matcher Reconciler, dl Downloader) *Pipeline {
	if cfg.SiteBaseURL == "" {
		cfg.SiteBaseURL = "https://shop.example.com"
	}
	cfg.Delay = time.Millisecond
	extractor := extract.New(extract.Config{
		KnownBrands:          []string{"Now Foods"},
		DefaultStockQuantity: 100,
	})
	return New(cfg, f, extractor, dl, store, matcher, nil)
}

const coq10Page = `<html><head>
<script type="application/ld+json">
{"@type": "Product", "name": "Now Foods CoQ10",
 "offers": {"price": "24.99"}}
</script>
</head><body><h1>Now Foods CoQ10</h1></body></html>`

func TestSyncGapFillsMissingPriceAndStock(t *testing.T) {
	product := &catalog.Product{ID: 7, SKU: "HM-123", Name: "Now Foods CoQ10", Slug: "now-foods-coq10"}
	store := &fakeCatalog{missing: []*catalog.Product{product}}
	matcher := newFakeMatcher()
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/products/now-foods-coq10": coq10Page,
	}}

	p := testPipeline(Config{ReportDir: t.TempDir()}, fetcher, store, matcher, &fakeDownloader{})

	run, err := p.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if matcher.prices[7] != 24.99 {
		t.Errorf("price write = %v, want 24.99", matcher.prices[7])
	}
	// no stock marker on the page: assumed available at the default
	if matcher.stocks[7] != 100 {
		t.Errorf("stock write = %v, want 100", matcher.stocks[7])
	}

	if run.Processed != 1 || run.Updated != 1 {
		t.Errorf("run = %+v", run)
	}
	if run.Items[0].SKU != "HM-123" || run.Items[0].Status != report.StatusUpdated {
		t.Errorf("item = %+v", run.Items[0])
	}
}

func TestSyncStoredPriceNeverOverwritten(t *testing.T) {
	product := &catalog.Product{
		ID: 8, SKU: "HM-200", Name: "Now Foods CoQ10", Slug: "now-foods-coq10",
		Price:             sql.NullString{String: "12.50", Valid: true},
		InventoryQuantity: sql.NullInt64{Int64: 3, Valid: true},
	}
	store := &fakeCatalog{missing: []*catalog.Product{product}}
	matcher := newFakeMatcher()
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/products/now-foods-coq10": coq10Page,
	}}

	p := testPipeline(Config{}, fetcher, store, matcher, &fakeDownloader{})
	run, err := p.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if _, wrote := matcher.prices[8]; wrote {
		t.Error("stored non-zero price must never be overwritten")
	}
	if run.Items[0].Status != report.StatusSkipped {
		t.Errorf("item status = %q, want skipped", run.Items[0].Status)
	}
}

func TestSyncIsolatesPerItemFailures(t *testing.T) {
	good := &catalog.Product{ID: 1, SKU: "HM-1", Name: "A", Slug: "a"}
	bad := &catalog.Product{ID: 2, SKU: "HM-2", Name: "B", Slug: "b"}
	gone := &catalog.Product{ID: 3, SKU: "HM-3", Name: "C", Slug: "c"}

	fetcher := &fakeFetcher{
		pages: map[string]string{"https://shop.example.com/products/a": coq10Page},
		errs: map[string]error{
			"https://shop.example.com/products/b": &fetch.NetworkError{URL: "b"},
		},
	}
	store := &fakeCatalog{missing: []*catalog.Product{good, bad, gone}}

	p := testPipeline(Config{}, fetcher, store, newFakeMatcher(), &fakeDownloader{})
	run, err := p.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed despite per-item isolation: %v", err)
	}

	if run.Processed != 3 {
		t.Errorf("processed = %d, want all 3 despite failures", run.Processed)
	}
	if run.Updated != 1 || run.Errors != 1 || run.NotFound != 1 {
		t.Errorf("counters = updated %d errors %d not_found %d", run.Updated, run.Errors, run.NotFound)
	}
}

const galleryPage = `<html><body><div class="product-detail">
<div class="product-gallery">
<img src="https://cdn.example.com/media/front.jpg" alt="front">
<img src="https://cdn.example.com/media/back.jpg" alt="back">
</div></div></body></html>`

func TestSyncImagesDownloadsAndRecords(t *testing.T) {
	product := &catalog.Product{ID: 5, SKU: "HM-5", Name: "Solgar Zinc", Slug: "solgar-zinc"}
	store := &fakeCatalog{noImages: []*catalog.Product{product}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/products/solgar-zinc": galleryPage,
	}}
	dl := &fakeDownloader{}

	p := testPipeline(Config{ImagesDir: t.TempDir()}, fetcher, store, newFakeMatcher(), dl)
	run, err := p.SyncImages(context.Background())
	if err != nil {
		t.Fatalf("SyncImages failed: %v", err)
	}

	if len(dl.downloads) != 2 {
		t.Fatalf("downloads = %v", dl.downloads)
	}
	if len(store.images) != 2 {
		t.Fatalf("image rows = %+v", store.images)
	}
	if !store.images[0].IsPrimary || store.images[1].IsPrimary {
		t.Error("exactly the first image must be primary")
	}
	if run.Items[0].Images != 2 || run.Items[0].Status != report.StatusUpdated {
		t.Errorf("item = %+v", run.Items[0])
	}
}

func TestPagesDiscoversAndReconciles(t *testing.T) {
	listing := `<html><body>
	<a href="/products/now-foods-coq10">CoQ10</a>
	<a href="/products/now-foods-coq10">CoQ10 duplicate</a>
	<a href="/products/unknown-item">Unknown</a>
	<a href="/products?page=2">Next</a>
	</body></html>`

	product := &catalog.Product{ID: 7, SKU: "HM-123", Name: "Now Foods CoQ10", Slug: "now-foods-coq10"}
	store := &fakeCatalog{bySlug: map[string]*catalog.Product{"now-foods-coq10": product}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://shop.example.com/products?page=1":          listing,
		"https://shop.example.com/products/now-foods-coq10": coq10Page,
		"https://shop.example.com/products/unknown-item":    coq10Page,
	}}
	matcher := newFakeMatcher()

	p := testPipeline(Config{}, fetcher, store, matcher, &fakeDownloader{})
	run, err := p.Pages(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}

	if matcher.prices[7] != 24.99 {
		t.Errorf("discovered product not gap-filled: %v", matcher.prices)
	}
	// duplicate link deduped; pagination link ignored; unknown slug
	// recorded as not_found
	if run.Processed != 2 {
		t.Errorf("processed = %d, want 2", run.Processed)
	}
	if run.NotFound != 1 {
		t.Errorf("not_found = %d, want 1", run.NotFound)
	}
}

func TestPagesRejectsInvalidRange(t *testing.T) {
	p := testPipeline(Config{}, &fakeFetcher{}, &fakeCatalog{}, newFakeMatcher(), &fakeDownloader{})
	if _, err := p.Pages(context.Background(), 3, 1); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestFinishWritesReportFile(t *testing.T) {
	dir := t.TempDir()
	product := &catalog.Product{ID: 1, SKU: "HM-1", Name: "A", Slug: "a"}
	fetcher := &fakeFetcher{pages: map[string]string{"https://shop.example.com/products/a": coq10Page}}
	store := &fakeCatalog{missing: []*catalog.Product{product}}

	p := testPipeline(Config{ReportDir: dir}, fetcher, store, newFakeMatcher(), &fakeDownloader{})
	if _, err := p.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("no report written: %v", err)
	}
	if filepath.Ext(entries[0].Name()) != ".json" {
		t.Errorf("report file = %q", entries[0].Name())
	}
}

func TestSyncCountsFetchesByStrategy(t *testing.T) {
	product := &catalog.Product{ID: 1, SKU: "HM-1", Name: "A", Slug: "a"}
	store := &fakeCatalog{missing: []*catalog.Product{product}}
	fetcher := &fakeFetcher{
		strategy: fetch.StrategyBrowser,
		pages:    map[string]string{"https://shop.example.com/products/a": coq10Page},
	}

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	extractor := extract.New(extract.Config{DefaultStockQuantity: 100})
	p := New(Config{SiteBaseURL: "https://shop.example.com", Delay: time.Millisecond},
		fetcher, extractor, &fakeDownloader{}, store, newFakeMatcher(), metrics)

	if _, err := p.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if got := testutil.ToFloat64(metrics.PagesFetched.WithLabelValues("browser", "miss")); got != 1 {
		t.Errorf("browser/miss counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.PagesFetched.WithLabelValues("http", "miss")); got != 0 {
		t.Errorf("http/miss counter = %v, want 0", got)
	}
}

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://shop.example.com/products/now-foods-coq10", "now-foods-coq10"},
		{"https://shop.example.com/products/coq10?ref=home", "coq10"},
		{"https://shop.example.com/products/coq10#reviews", "coq10"},
		{"https://shop.example.com/products?page=2", ""},
		{"https://shop.example.com/brands/now", ""},
	}
	for _, tt := range tests {
		if got := slugFromURL(tt.url); got != tt.want {
			t.Errorf("slugFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
