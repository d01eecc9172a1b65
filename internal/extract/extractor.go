// internal/extract/extractor.go
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/healthmart/catalogsync/internal/utils"
)

var logger = utils.NewComponentLogger("extract")

// Config carries the lookup tables and bounds injected into the
// extractor. Tables live in configuration rather than package globals so
// tests can substitute alternates.
type Config struct {
	// KnownBrands is scanned for case-insensitive prefixes of the
	// product name, longest match winning
	KnownBrands []string

	// PriceMin/PriceMax bound plausible extracted prices
	PriceMin float64
	PriceMax float64

	// DefaultStockQuantity is assumed when no out-of-stock marker is
	// present; favors recall ("assume available") over precision
	DefaultStockQuantity int

	// MinImagePixelArea is the declared width*height floor for the
	// largest-image fallback
	MinImagePixelArea int

	// MaxImages caps candidate images per page
	MaxImages int

	// ImageFilter vets each candidate image URL before acceptance;
	// nil accepts everything
	ImageFilter func(string) bool
}

// Extractor derives a Candidate from a parsed page by running each
// field's strategy cascade.
type Extractor struct {
	cfg Config
}

// New creates an extractor, filling unset bounds with the conventional
// defaults.
func New(cfg Config) *Extractor {
	if cfg.PriceMin <= 0 {
		cfg.PriceMin = 0.01
	}
	if cfg.PriceMax <= 0 {
		cfg.PriceMax = 10000
	}
	if cfg.DefaultStockQuantity <= 0 {
		cfg.DefaultStockQuantity = 100
	}
	if cfg.MinImagePixelArea <= 0 {
		cfg.MinImagePixelArea = 20000
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 5
	}
	return &Extractor{cfg: cfg}
}

// Candidate runs every field cascade against the document and assembles
// the transient scrape candidate for the page.
func (e *Extractor) Candidate(doc *Document, pageURL string) *Candidate {
	schema := doc.findProductSchema()

	c := &Candidate{URL: pageURL}
	c.Name = e.extractName(doc, schema)
	c.Price = e.extractPrice(doc, schema)
	c.ComparePrice = e.extractComparePrice(doc, c.Price)
	c.ShortDescription, c.LongDescription = e.extractDescriptions(doc, schema)
	c.BrandText = e.extractBrand(doc, schema, c.Name)
	c.CategoryText = e.extractCategory(doc, pageURL)
	c.InStock, c.StockQuantity = e.extractStock(doc, schema)
	c.Images = e.extractImages(doc, schema)
	c.Weight = e.extractWeight(doc, schema)
	c.Ingredients = e.extractIngredients(doc)

	logger.Debugf("extracted candidate from %s: name=%q price=%.2f images=%d",
		pageURL, c.Name, c.Price, len(c.Images))
	return c
}

var nameSelectors = []string{
	"h1.product-title",
	"h1.product-name",
	".product-title",
	".product-name",
	"[itemprop='name']",
	"h1",
}

func (e *Extractor) extractName(doc *Document, schema *productSchema) string {
	if schema != nil && schema.Name != "" {
		return utils.CollapseSpaces(schema.Name)
	}
	if v := doc.metaContent("og:title"); v != "" {
		return utils.CollapseSpaces(v)
	}
	return utils.CollapseSpaces(doc.selectorText(nameSelectors))
}

var priceSelectors = []string{
	".product-price .current",
	".price-current",
	".product-price",
	".sale-price",
	"[itemprop='price']",
	".price",
}

// priceAreaSelectors restrict the free-text fallback so a "$" in a
// shipping banner or related-items widget is not mistaken for the price.
var priceAreaSelectors = []string{
	".product-price-area",
	".price-box",
	".product-summary",
	".product-info",
}

func (e *Extractor) extractPrice(doc *Document, schema *productSchema) float64 {
	// Structured data is the highest-trust source.
	if schema != nil && schema.Price != "" {
		if v := ParsePrice(schema.Price, e.cfg.PriceMin, e.cfg.PriceMax); v > 0 {
			return v
		}
	}

	for _, key := range []string{"product:price:amount", "og:price:amount"} {
		if raw := doc.metaContent(key); raw != "" {
			if v := ParsePrice(raw, e.cfg.PriceMin, e.cfg.PriceMax); v > 0 {
				return v
			}
		}
	}

	for _, sel := range priceSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if raw, ok := node.Attr("content"); ok {
			if v := ParsePrice(raw, e.cfg.PriceMin, e.cfg.PriceMax); v > 0 {
				return v
			}
		}
		if v := ParsePrice(node.Text(), e.cfg.PriceMin, e.cfg.PriceMax); v > 0 {
			return v
		}
	}

	// Last resort: first currency-prefixed amount inside a price area.
	for _, sel := range priceAreaSelectors {
		if area := doc.Find(sel).First(); area.Length() > 0 {
			if v := FindPriceInText(area.Text(), e.cfg.PriceMin, e.cfg.PriceMax); v > 0 {
				return v
			}
		}
	}

	return 0
}

var comparePriceSelectors = []string{
	".compare-price",
	".price-was",
	".original-price",
	"del .price",
	"s.price",
	".product-price del",
}

// extractComparePrice finds the struck-through "was" price. A compare
// price at or below the current price is noise and dropped.
func (e *Extractor) extractComparePrice(doc *Document, current float64) float64 {
	for _, sel := range comparePriceSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if v := ParsePrice(node.Text(), e.cfg.PriceMin, e.cfg.PriceMax); v > 0 {
			if current > 0 && v <= current {
				return 0
			}
			return v
		}
	}
	return 0
}

var shortDescSelectors = []string{
	".product-summary p",
	".product-short-description",
	".short-description",
	"[itemprop='description']",
}

var longDescSelectors = []string{
	".product-description",
	"#description",
	".description",
	"#tab-description",
	".product-details-description",
}

func (e *Extractor) extractDescriptions(doc *Document, schema *productSchema) (short, long string) {
	if schema != nil && schema.Description != "" {
		long = utils.CollapseSpaces(schema.Description)
	}
	if long == "" {
		long = utils.CollapseSpaces(doc.selectorText(longDescSelectors))
	}

	short = utils.CollapseSpaces(utils.FirstNonEmpty(
		doc.metaContent("og:description"),
		doc.metaContent("description"),
		doc.selectorText(shortDescSelectors),
	))
	if short == "" && long != "" {
		short = utils.Truncate(long, 200)
	}
	return short, long
}

var brandSelectors = []string{
	"[itemprop='brand']",
	".product-brand",
	".brand-name",
	".brand a",
	".brand",
}

// extractBrand tries explicit markup first, then falls back to the
// known-brands prefix lookup over the product name.
func (e *Extractor) extractBrand(doc *Document, schema *productSchema, name string) string {
	if schema != nil && schema.Brand != "" {
		return utils.CollapseSpaces(schema.Brand)
	}
	if v := doc.metaContent("product:brand"); v != "" {
		return utils.CollapseSpaces(v)
	}
	if v := doc.selectorText(brandSelectors); v != "" {
		return utils.CollapseSpaces(v)
	}
	return e.brandFromName(name)
}

// brandFromName matches the product name against the known-brands list,
// preferring the longest case-insensitive prefix.
func (e *Extractor) brandFromName(name string) string {
	lower := strings.ToLower(name)
	best := ""
	for _, brand := range e.cfg.KnownBrands {
		if brand == "" {
			continue
		}
		if strings.HasPrefix(lower, strings.ToLower(brand)) && len(brand) > len(best) {
			best = brand
		}
	}
	return best
}

var breadcrumbSelectors = []string{
	".breadcrumb li",
	".breadcrumbs li",
	"nav[aria-label='breadcrumb'] li",
	".breadcrumb a",
	".breadcrumbs a",
}

// genericCrumbs are navigation segments that name the site, not a
// category.
var genericCrumbs = map[string]bool{
	"home": true, "shop": true, "products": true, "all products": true,
	"catalog": true, "store": true,
}

// extractCategory reads the breadcrumb trail, taking the last segment
// that is neither generic nor the product itself; with no usable trail
// it falls back to URL path segments.
func (e *Extractor) extractCategory(doc *Document, pageURL string) string {
	for _, sel := range breadcrumbSelectors {
		nodes := doc.Find(sel)
		if nodes.Length() < 2 {
			continue
		}
		texts := make([]string, 0, nodes.Length())
		nodes.Each(func(_ int, s *goquery.Selection) {
			if t := utils.CollapseSpaces(s.Text()); t != "" {
				texts = append(texts, t)
			}
		})
		// skip the final crumb: it is usually the product name
		for i := len(texts) - 2; i >= 0; i-- {
			if !genericCrumbs[strings.ToLower(texts[i])] {
				return texts[i]
			}
		}
	}

	return categoryFromURLPath(pageURL)
}

var stockNegativeMarkers = []string{
	"out of stock",
	"sold out",
	"currently unavailable",
	"backordered",
	"notify me when available",
	"discontinued",
}

var stockSelectors = []string{
	".availability",
	".stock-status",
	".product-stock",
	"[itemprop='availability']",
}

// extractStock treats an explicit negative marker as authoritative; its
// absence defaults to available with the placeholder quantity.
func (e *Extractor) extractStock(doc *Document, schema *productSchema) (bool, int) {
	if schema != nil && schema.InStock != nil {
		if !*schema.InStock {
			return false, 0
		}
		return true, e.cfg.DefaultStockQuantity
	}

	for _, sel := range stockSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := strings.ToLower(node.Text())
		if raw, ok := node.Attr("href"); ok {
			text += " " + strings.ToLower(raw)
		}
		for _, marker := range stockNegativeMarkers {
			if strings.Contains(text, marker) {
				return false, 0
			}
		}
	}

	areaText := strings.ToLower(doc.ProductArea().Text())
	for _, marker := range stockNegativeMarkers {
		if strings.Contains(areaText, marker) {
			return false, 0
		}
	}

	return true, e.cfg.DefaultStockQuantity
}

var weightSelectors = []string{
	"[itemprop='weight']",
	".product-weight",
	".weight",
}

func (e *Extractor) extractWeight(doc *Document, schema *productSchema) string {
	if schema != nil && schema.Weight != "" {
		return schema.Weight
	}
	return utils.CollapseSpaces(doc.selectorText(weightSelectors))
}

var ingredientSelectors = []string{
	".product-ingredients",
	"#ingredients",
	".ingredients",
	"#tab-ingredients",
}

func (e *Extractor) extractIngredients(doc *Document) string {
	return utils.CollapseSpaces(doc.selectorText(ingredientSelectors))
}

// categoryFromURLPath derives a category from the URL path, picking the
// last non-generic segment before the product slug.
func categoryFromURLPath(pageURL string) string {
	parts := strings.Split(pageURL, "/")
	// strip scheme/host/product slug; walk interior segments backwards
	for i := len(parts) - 2; i >= 3; i-- {
		seg := strings.TrimSpace(parts[i])
		if seg == "" || genericCrumbs[strings.ToLower(seg)] {
			continue
		}
		seg = strings.ReplaceAll(seg, "-", " ")
		seg = strings.ReplaceAll(seg, "_", " ")
		return utils.CollapseSpaces(seg)
	}
	return ""
}
