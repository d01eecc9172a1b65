// internal/extract/extractor_test.go
package extract

import (
	"testing"
)

func testExtractor() *Extractor {
	return New(Config{
		KnownBrands:          []string{"Now Foods", "Now", "Solgar", "Garden of Life"},
		PriceMin:             0.01,
		PriceMax:             10000,
		DefaultStockQuantity: 100,
		MinImagePixelArea:    20000,
		MaxImages:            5,
	})
}

func mustDoc(t *testing.T, html, url string) *Document {
	t.Helper()
	doc, err := NewDocument([]byte(html), url)
	if err != nil {
		t.Fatalf("NewDocument failed: %v", err)
	}
	return doc
}

func TestCandidateFromStructuredData(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{
	  "@context": "https://schema.org",
	  "@type": "Product",
	  "name": "Now Foods CoQ10 100mg",
	  "description": "Supports heart health and cellular energy production.",
	  "brand": {"@type": "Brand", "name": "Now Foods"},
	  "image": ["https://cdn.example.com/products/coq10-front.jpg"],
	  "offers": {"@type": "Offer", "price": "24.99", "priceCurrency": "USD",
	             "availability": "https://schema.org/InStock"}
	}
	</script>
	</head><body><h1>ignored</h1></body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/heart-health/coq10")
	c := testExtractor().Candidate(doc, "https://shop.example.com/heart-health/coq10")

	if c.Name != "Now Foods CoQ10 100mg" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Price != 24.99 {
		t.Errorf("price = %v, want 24.99", c.Price)
	}
	if c.BrandText != "Now Foods" {
		t.Errorf("brand = %q", c.BrandText)
	}
	if !c.InStock || c.StockQuantity != 100 {
		t.Errorf("stock = (%v, %d), want (true, 100)", c.InStock, c.StockQuantity)
	}
	if len(c.Images) != 1 || c.Images[0].URL != "https://cdn.example.com/products/coq10-front.jpg" {
		t.Errorf("images = %+v", c.Images)
	}
	if c.LongDescription == "" {
		t.Error("expected long description from structured data")
	}
}

func TestCandidateFallsBackThroughCascade(t *testing.T) {
	html := `<html><head>
	<meta property="og:title" content="Solgar Magnesium Citrate">
	<meta property="og:description" content="Highly absorbable magnesium.">
	</head><body>
	<div class="product-info">
		<div class="price-box">Special offer: $14.50 while supplies last</div>
	</div>
	</body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/minerals/magnesium-citrate")
	c := testExtractor().Candidate(doc, "https://shop.example.com/minerals/magnesium-citrate")

	if c.Name != "Solgar Magnesium Citrate" {
		t.Errorf("name = %q, want og:title value", c.Name)
	}
	if c.Price != 14.50 {
		t.Errorf("price = %v, want free-text fallback 14.50", c.Price)
	}
	if c.ShortDescription != "Highly absorbable magnesium." {
		t.Errorf("short description = %q", c.ShortDescription)
	}
}

func TestPriceUnknownSentinel(t *testing.T) {
	html := `<html><body><h1>Mystery Supplement</h1>
	<p>Contact us for pricing. 500mg per serving.</p></body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/products/mystery")
	c := testExtractor().Candidate(doc, "https://shop.example.com/products/mystery")

	if c.Price != 0 {
		t.Errorf("price = %v, want 0 unknown sentinel", c.Price)
	}
	if c.HasPrice() {
		t.Error("HasPrice should be false at the sentinel")
	}
}

func TestStockNegativeMarkerIsAuthoritative(t *testing.T) {
	html := `<html><body><div class="product-detail">
	<h1 class="product-title">Garden of Life Raw Probiotics</h1>
	<div class="availability">Out of Stock</div>
	</div></body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/p/raw-probiotics")
	c := testExtractor().Candidate(doc, "https://shop.example.com/p/raw-probiotics")

	if c.InStock {
		t.Error("explicit out-of-stock marker should win")
	}
	if c.StockQuantity != 0 {
		t.Errorf("stock quantity = %d, want 0", c.StockQuantity)
	}
}

func TestStockDefaultsToAssumedAvailable(t *testing.T) {
	html := `<html><body><h1>Thorne Basic Nutrients</h1></body></html>`
	doc := mustDoc(t, html, "https://shop.example.com/p/basic-nutrients")
	c := testExtractor().Candidate(doc, "https://shop.example.com/p/basic-nutrients")

	if !c.InStock || c.StockQuantity != 100 {
		t.Errorf("stock = (%v, %d), want assumed-available (true, 100)", c.InStock, c.StockQuantity)
	}
}

func TestBrandFromNamePrefersLongestPrefix(t *testing.T) {
	e := testExtractor()
	tests := []struct {
		name     string
		expected string
	}{
		{"Now Foods CoQ10 100mg", "Now Foods"},
		{"Now CoQ10", "Now"},
		{"Garden of Life Vitamin Code", "Garden of Life"},
		{"Unbranded Fish Oil", ""},
	}
	for _, tt := range tests {
		if got := e.brandFromName(tt.name); got != tt.expected {
			t.Errorf("brandFromName(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}

func TestCategoryFromBreadcrumbSkipsGenericAndProduct(t *testing.T) {
	html := `<html><body>
	<ul class="breadcrumb">
		<li>Home</li>
		<li>Shop</li>
		<li>Heart Health</li>
		<li>Now Foods CoQ10</li>
	</ul>
	<h1>Now Foods CoQ10</h1>
	</body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/products/coq10")
	c := testExtractor().Candidate(doc, "https://shop.example.com/products/coq10")

	if c.CategoryText != "Heart Health" {
		t.Errorf("category = %q, want breadcrumb segment", c.CategoryText)
	}
}

func TestCategoryFromURLPathFallback(t *testing.T) {
	html := `<html><body><h1>Solgar Zinc</h1></body></html>`
	url := "https://shop.example.com/immune-support/solgar-zinc"
	doc := mustDoc(t, html, url)
	c := testExtractor().Candidate(doc, url)

	if c.CategoryText != "immune support" {
		t.Errorf("category = %q, want URL path fallback", c.CategoryText)
	}
}

func TestComparePriceMustExceedCurrent(t *testing.T) {
	html := `<html><body><div class="product-info">
	<span class="product-price">$19.99</span>
	<span class="compare-price">$29.99</span>
	</div></body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/p/x")
	c := testExtractor().Candidate(doc, "https://shop.example.com/p/x")

	if c.Price != 19.99 {
		t.Errorf("price = %v", c.Price)
	}
	if c.ComparePrice != 29.99 {
		t.Errorf("compare price = %v, want 29.99", c.ComparePrice)
	}
}
