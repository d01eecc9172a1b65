// internal/pipeline/pipeline.go

// Package pipeline drives the reconciliation runs: it enumerates a work
// set, pushes each item through fetch, extraction, image download, and
// matching, and aggregates the outcomes into a run report. Work is
// strictly sequential with a fixed inter-request delay; a per-item
// failure is recorded and the batch continues.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/healthmart/catalogsync/internal/assets"
	"github.com/healthmart/catalogsync/internal/catalog"
	"github.com/healthmart/catalogsync/internal/extract"
	"github.com/healthmart/catalogsync/internal/fetch"
	"github.com/healthmart/catalogsync/internal/monitoring"
	"github.com/healthmart/catalogsync/internal/report"
	"github.com/healthmart/catalogsync/internal/utils"
)

var logger = utils.NewComponentLogger("pipeline")

// Catalog is the slice of the store the pipeline enumerates and writes
// through.
type Catalog interface {
	ProductsMissingData(ctx context.Context) ([]*catalog.Product, error)
	ProductsWithoutImages(ctx context.Context) ([]*catalog.Product, error)
	ProductsWithoutBrand(ctx context.Context) ([]*catalog.Product, error)
	ProductsWithoutCategory(ctx context.Context) ([]*catalog.Product, error)
	ProductBySlug(ctx context.Context, slug string) (*catalog.Product, error)
	UpsertImage(ctx context.Context, img catalog.ProductImage) error
}

// Reconciler is the matcher surface the pipeline invokes per item.
type Reconciler interface {
	Load(ctx context.Context) error
	AssignBrand(ctx context.Context, p *catalog.Product) (string, error)
	AssignCategory(ctx context.Context, p *catalog.Product) (string, error)
	GapFill(ctx context.Context, p *catalog.Product, c *extract.Candidate) (catalog.GapFillResult, error)
}

// Downloader is the asset download surface, narrowed for testability.
type Downloader interface {
	Download(ctx context.Context, rawURL, destPath string) (*assets.DownloadResult, error)
}

// Config carries the orchestration knobs.
type Config struct {
	SiteBaseURL string
	Delay       time.Duration
	ImagesDir   string
	ReportDir   string
	ExcelReport bool
}

// Pipeline wires the components together for one or more runs.
type Pipeline struct {
	cfg        Config
	fetcher    fetch.Fetcher
	extractor  *extract.Extractor
	downloader Downloader
	store      Catalog
	matcher    Reconciler
	metrics    *monitoring.Metrics
	limiter    *rate.Limiter
}

// New assembles a pipeline. metrics may be nil outside serve mode.
func New(cfg Config, fetcher fetch.Fetcher, extractor *extract.Extractor,
	downloader Downloader, store Catalog, matcher Reconciler, metrics *monitoring.Metrics) *Pipeline {

	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	return &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		extractor:  extractor,
		downloader: downloader,
		store:      store,
		matcher:    matcher,
		metrics:    metrics,
		limiter:    rate.NewLimiter(rate.Every(cfg.Delay), 1),
	}
}

// Sync reconciles every product missing price or stock data.
func (p *Pipeline) Sync(ctx context.Context) (*report.Run, error) {
	run := report.NewRun("sync")

	if err := p.matcher.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load matching tables: %w", err)
	}
	products, err := p.store.ProductsMissingData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate work set: %w", err)
	}
	logger.Infof("sync: %d products missing data", len(products))

	for _, product := range products {
		p.setInFlight(1)
		item := p.syncOne(ctx, product)
		p.setInFlight(0)
		p.record(run, item)
		if ctx.Err() != nil {
			break
		}
	}

	return p.finish(run)
}

func (p *Pipeline) syncOne(ctx context.Context, product *catalog.Product) report.Item {
	item := report.Item{SKU: product.SKU, ProductID: product.ID}

	pageURL := p.productURL(product)
	item.URL = pageURL

	candidate, err := p.fetchCandidate(ctx, pageURL)
	if err != nil {
		return p.classify(item, err)
	}

	res, err := p.matcher.GapFill(ctx, product, candidate)
	if err != nil {
		item.Status = report.StatusError
		item.Message = err.Error()
		return item
	}

	if res.PriceUpdated || res.StockUpdated {
		item.Status = report.StatusUpdated
	} else {
		item.Status = report.StatusSkipped
		item.Message = "nothing to fill"
	}
	return item
}

// SyncImages downloads and records images for products without any.
func (p *Pipeline) SyncImages(ctx context.Context) (*report.Run, error) {
	run := report.NewRun("images")

	products, err := p.store.ProductsWithoutImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate work set: %w", err)
	}
	logger.Infof("images: %d products without images", len(products))

	for _, product := range products {
		p.setInFlight(1)
		item := p.imagesOne(ctx, product)
		p.setInFlight(0)
		p.record(run, item)
		if ctx.Err() != nil {
			break
		}
	}

	return p.finish(run)
}

func (p *Pipeline) imagesOne(ctx context.Context, product *catalog.Product) report.Item {
	item := report.Item{SKU: product.SKU, ProductID: product.ID}

	pageURL := p.productURL(product)
	item.URL = pageURL

	candidate, err := p.fetchCandidate(ctx, pageURL)
	if err != nil {
		return p.classify(item, err)
	}
	if len(candidate.Images) == 0 {
		item.Status = report.StatusNotFound
		item.Message = "no acceptable images on page"
		return item
	}

	downloaded := 0
	for i, ref := range candidate.Images {
		if err := p.limiter.Wait(ctx); err != nil {
			break
		}
		name := assets.Filename(product.Name, product.SKU, i, ref.URL)
		dest := filepath.Join(p.cfg.ImagesDir, name)

		res, err := p.downloader.Download(ctx, ref.URL, dest)
		if err != nil {
			logger.Warnf("image download failed for product %d: %v", product.ID, err)
			p.countImage("failed")
			continue
		}
		if res.Skipped {
			p.countImage("skipped")
		} else {
			p.countImage("downloaded")
		}

		img := catalog.ProductImage{
			ProductID: product.ID,
			ImageURL:  "/images/" + name,
			IsPrimary: downloaded == 0,
			SortOrder: i,
		}
		if err := p.store.UpsertImage(ctx, img); err != nil {
			item.Status = report.StatusError
			item.Message = err.Error()
			return item
		}
		downloaded++
	}

	item.Images = downloaded
	if downloaded == 0 {
		item.Status = report.StatusError
		item.Message = "all image downloads failed"
	} else {
		item.Status = report.StatusUpdated
	}
	return item
}

// AssignBrands runs the brand prefix matcher over products without a
// brand reference. No network is involved.
func (p *Pipeline) AssignBrands(ctx context.Context) (*report.Run, error) {
	run := report.NewRun("brands")

	if err := p.matcher.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load matching tables: %w", err)
	}
	products, err := p.store.ProductsWithoutBrand(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate work set: %w", err)
	}
	logger.Infof("brands: %d products without a brand", len(products))

	for _, product := range products {
		item := report.Item{SKU: product.SKU, ProductID: product.ID}
		name, err := p.matcher.AssignBrand(ctx, product)
		switch {
		case err != nil:
			item.Status = report.StatusError
			item.Message = err.Error()
		case name == "":
			item.Status = report.StatusNotFound
			item.Message = "no brand prefix matched"
		default:
			item.Status = report.StatusUpdated
			item.Message = name
		}
		p.record(run, item)
	}

	return p.finish(run)
}

// AssignCategories runs the keyword scorer over products without a
// category reference.
func (p *Pipeline) AssignCategories(ctx context.Context) (*report.Run, error) {
	run := report.NewRun("categories")

	if err := p.matcher.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load matching tables: %w", err)
	}
	products, err := p.store.ProductsWithoutCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate work set: %w", err)
	}
	logger.Infof("categories: %d products without a category", len(products))

	for _, product := range products {
		item := report.Item{SKU: product.SKU, ProductID: product.ID}
		name, err := p.matcher.AssignCategory(ctx, product)
		switch {
		case err != nil:
			item.Status = report.StatusError
			item.Message = err.Error()
		case name == "":
			item.Status = report.StatusNotFound
			item.Message = "no category scored above zero"
		default:
			item.Status = report.StatusUpdated
			item.Message = name
		}
		p.record(run, item)
	}

	return p.finish(run)
}

// Pages crawls listing pages from..to, discovers product detail links,
// and gap-fills each discovered product found in the catalog.
func (p *Pipeline) Pages(ctx context.Context, from, to int) (*report.Run, error) {
	run := report.NewRun("pages")

	if from < 1 || to < from {
		return nil, fmt.Errorf("invalid page range %d..%d", from, to)
	}
	if err := p.matcher.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load matching tables: %w", err)
	}

	for page := from; page <= to; page++ {
		listURL := fmt.Sprintf("%s/products?page=%d", strings.TrimRight(p.cfg.SiteBaseURL, "/"), page)

		if err := p.limiter.Wait(ctx); err != nil {
			break
		}
		res, err := p.fetcher.Fetch(ctx, listURL)
		if err != nil {
			p.record(run, p.classify(report.Item{URL: listURL}, err))
			continue
		}
		p.countFetch(res)

		doc, err := extract.NewDocument(res.Body, listURL)
		if err != nil {
			p.record(run, report.Item{URL: listURL, Status: report.StatusError, Message: err.Error()})
			continue
		}

		for _, link := range productLinks(doc) {
			p.setInFlight(1)
			item := p.pagesOne(ctx, link)
			p.setInFlight(0)
			p.record(run, item)
			if ctx.Err() != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	return p.finish(run)
}

func (p *Pipeline) pagesOne(ctx context.Context, pageURL string) report.Item {
	item := report.Item{URL: pageURL}

	slug := slugFromURL(pageURL)
	if slug == "" {
		item.Status = report.StatusSkipped
		item.Message = "no product slug in URL"
		return item
	}

	product, err := p.store.ProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			item.Status = report.StatusNotFound
			item.Message = "no catalog row for slug " + slug
			return item
		}
		item.Status = report.StatusError
		item.Message = err.Error()
		return item
	}
	item.SKU = product.SKU
	item.ProductID = product.ID

	candidate, err := p.fetchCandidate(ctx, pageURL)
	if err != nil {
		return p.classify(item, err)
	}

	res, err := p.matcher.GapFill(ctx, product, candidate)
	if err != nil {
		item.Status = report.StatusError
		item.Message = err.Error()
		return item
	}
	if res.PriceUpdated || res.StockUpdated {
		item.Status = report.StatusUpdated
	} else {
		item.Status = report.StatusSkipped
	}
	return item
}

// fetchCandidate performs the paced fetch+extract step shared by all
// network-bound runs.
func (p *Pipeline) fetchCandidate(ctx context.Context, pageURL string) (*extract.Candidate, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	p.countFetch(res)

	doc, err := extract.NewDocument(res.Body, res.FinalURL)
	if err != nil {
		return nil, err
	}
	return p.extractor.Candidate(doc, pageURL), nil
}

// productURL derives the product detail page from the catalog slug,
// falling back to a slugified name.
func (p *Pipeline) productURL(product *catalog.Product) string {
	slug := product.Slug
	if slug == "" {
		slug = utils.Slugify(product.Name)
	}
	return strings.TrimRight(p.cfg.SiteBaseURL, "/") + "/products/" + slug
}

// classify sorts a per-item error into a report status. A 404 means the
// page is legitimately absent, not a fault.
func (p *Pipeline) classify(item report.Item, err error) report.Item {
	var httpErr *fetch.HTTPError
	if errors.As(err, &httpErr) && httpErr.NotFound() {
		item.Status = report.StatusNotFound
		item.Message = "page absent"
		p.countFetchError("http_404")
		return item
	}

	item.Status = report.StatusError
	item.Message = err.Error()

	var netErr *fetch.NetworkError
	var loopErr *fetch.RedirectLoopError
	switch {
	case errors.As(err, &netErr):
		p.countFetchError("network")
	case errors.As(err, &loopErr):
		p.countFetchError("redirect_loop")
	case errors.As(err, &httpErr):
		p.countFetchError("http")
	default:
		p.countFetchError("other")
	}
	return item
}

func (p *Pipeline) record(run *report.Run, item report.Item) {
	run.Record(item)
	if p.metrics != nil {
		p.metrics.ItemsProcessed.WithLabelValues(string(item.Status)).Inc()
	}
	if item.Status == report.StatusError {
		logger.Warnf("item failed: sku=%s url=%s: %s", item.SKU, item.URL, item.Message)
	}
}

// finish stamps the run, writes the report artifacts, and prints the
// summary. Report-write failures are fatal to the run result but the
// database writes already made stand.
func (p *Pipeline) finish(run *report.Run) (*report.Run, error) {
	run.Finish()
	if p.metrics != nil {
		p.metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}

	if p.cfg.ReportDir != "" {
		path, err := report.WriteJSON(run, p.cfg.ReportDir)
		if err != nil {
			return run, err
		}
		logger.Infof("report written to %s", path)

		if p.cfg.ExcelReport {
			xlsx, err := report.WriteExcel(run, p.cfg.ReportDir)
			if err != nil {
				return run, err
			}
			logger.Infof("workbook written to %s", xlsx)
		}
	}

	fmt.Println(run.Summary())
	return run, nil
}

func (p *Pipeline) countFetch(res *fetch.Result) {
	if p.metrics == nil {
		return
	}
	strategy := res.Strategy
	if strategy == "" {
		strategy = fetch.StrategyHTTP
	}
	cache := "miss"
	if res.FromCache {
		cache = "hit"
	}
	p.metrics.PagesFetched.WithLabelValues(strategy, cache).Inc()
}

func (p *Pipeline) countFetchError(kind string) {
	if p.metrics != nil {
		p.metrics.FetchErrors.WithLabelValues(kind).Inc()
	}
}

func (p *Pipeline) setInFlight(v float64) {
	if p.metrics != nil {
		p.metrics.ItemsInFlight.Set(v)
	}
}

func (p *Pipeline) countImage(outcome string) {
	if p.metrics != nil {
		p.metrics.ImagesOutcome.WithLabelValues(outcome).Inc()
	}
}
