// internal/extract/images_test.go
package extract

import (
	"strings"
	"testing"
)

func TestExtractImagesFromGallery(t *testing.T) {
	html := `<html><body>
	<header><img src="/static/logo.png" width="200" height="60"></header>
	<div class="product-detail">
		<div class="product-gallery">
			<img src="/media/products/coq10-front.jpg" alt="CoQ10 front">
			<img data-src="/media/products/coq10-back.jpg" alt="CoQ10 back">
		</div>
	</div>
	</body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/p/coq10")
	c := testExtractor().Candidate(doc, "https://shop.example.com/p/coq10")

	if len(c.Images) != 2 {
		t.Fatalf("images = %d, want 2: %+v", len(c.Images), c.Images)
	}
	if c.Images[0].URL != "https://shop.example.com/media/products/coq10-front.jpg" {
		t.Errorf("first image = %q", c.Images[0].URL)
	}
	if c.Images[1].URL != "https://shop.example.com/media/products/coq10-back.jpg" {
		t.Errorf("lazy-loaded image not resolved: %q", c.Images[1].URL)
	}
	if c.Images[0].Alt != "CoQ10 front" {
		t.Errorf("alt = %q", c.Images[0].Alt)
	}
}

func TestExtractImagesAppliesFilter(t *testing.T) {
	html := `<html><body><div class="product-detail">
	<div class="product-gallery">
		<img src="/tracking/pixel.gif" alt="">
		<img src="/media/products/real.jpg" alt="product">
	</div>
	</div></body></html>`

	cfg := testExtractor().cfg
	cfg.ImageFilter = func(u string) bool { return !strings.Contains(u, "tracking") }
	e := New(cfg)

	doc := mustDoc(t, html, "https://shop.example.com/p/x")
	c := e.Candidate(doc, "https://shop.example.com/p/x")

	if len(c.Images) != 1 || !strings.HasSuffix(c.Images[0].URL, "real.jpg") {
		t.Errorf("filter not applied: %+v", c.Images)
	}
}

func TestLargestImageFallback(t *testing.T) {
	html := `<html><body><div class="product-detail">
	<img src="/media/thumb.jpg" width="100" height="100">
	<img src="/media/hero.jpg" width="600" height="600">
	<img src="/media/unsized.jpg">
	</div></body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/p/x")
	c := testExtractor().Candidate(doc, "https://shop.example.com/p/x")

	if len(c.Images) != 1 {
		t.Fatalf("images = %+v, want exactly the largest", c.Images)
	}
	if !strings.HasSuffix(c.Images[0].URL, "hero.jpg") {
		t.Errorf("largest image = %q, want hero.jpg", c.Images[0].URL)
	}
}

func TestLargestImageRespectsPixelFloor(t *testing.T) {
	// 100x100 = 10,000 px² is below the 20,000 px² floor
	html := `<html><body><div class="product-detail">
	<img src="/media/small.jpg" width="100" height="100">
	</div></body></html>`

	doc := mustDoc(t, html, "https://shop.example.com/p/x")
	c := testExtractor().Candidate(doc, "https://shop.example.com/p/x")

	if len(c.Images) != 0 {
		t.Errorf("images below the pixel floor must be rejected: %+v", c.Images)
	}
}

func TestExtractImagesCapsAtMax(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body><div class="product-detail"><div class="product-gallery">`)
	for i := 0; i < 10; i++ {
		b.WriteString(`<img src="/media/img-` + string(rune('a'+i)) + `.jpg">`)
	}
	b.WriteString(`</div></div></body></html>`)

	doc := mustDoc(t, b.String(), "https://shop.example.com/p/x")
	c := testExtractor().Candidate(doc, "https://shop.example.com/p/x")

	if len(c.Images) > 5 {
		t.Errorf("images = %d, want at most 5", len(c.Images))
	}
}

func TestResolveURL(t *testing.T) {
	doc := mustDoc(t, "<html></html>", "https://shop.example.com/products/item")

	tests := []struct {
		ref      string
		expected string
	}{
		{"/media/a.jpg", "https://shop.example.com/media/a.jpg"},
		{"b.jpg", "https://shop.example.com/products/b.jpg"},
		{"https://cdn.example.com/c.jpg", "https://cdn.example.com/c.jpg"},
		{"//cdn.example.com/d.jpg", "https://cdn.example.com/d.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := doc.ResolveURL(tt.ref); got != tt.expected {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.expected)
		}
	}
}
