// internal/extract/images.go
package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// galleryImageSelectors rank the markup shapes product galleries use,
// most specific first. Probing happens inside the product area only, so
// header, footer, and ad imagery never enters the candidate set.
var galleryImageSelectors = []string{
	".product-gallery img",
	".product-images img",
	".product-image img",
	".gallery img",
	"[itemprop='image']",
	".main-image img",
	"img.product-photo",
}

// srcAttributes lists the attributes a gallery image may carry its URL
// in, covering the common lazy-loading variants.
var srcAttributes = []string{"src", "data-src", "data-lazy-src", "data-original"}

// extractImages walks the ranked gallery selectors, resolving and
// filtering each candidate URL. When no structured selector yields an
// image it falls back to the largest declared image in the product area
// above the configured pixel-area floor.
func (e *Extractor) extractImages(doc *Document, schema *productSchema) []ImageRef {
	seen := make(map[string]bool)
	var refs []ImageRef

	accept := func(rawURL, alt string) bool {
		abs := doc.ResolveURL(rawURL)
		if abs == "" || seen[abs] {
			return false
		}
		if e.cfg.ImageFilter != nil && !e.cfg.ImageFilter(abs) {
			return false
		}
		seen[abs] = true
		refs = append(refs, ImageRef{URL: abs, Alt: alt})
		return len(refs) >= e.cfg.MaxImages
	}

	// Structured data images are highest trust; the cascade stops at
	// the first tier that yields anything.
	if schema != nil {
		for _, u := range schema.Images {
			if accept(u, "") {
				break
			}
		}
		if len(refs) > 0 {
			return refs
		}
	}

	if v := doc.metaContent("og:image"); v != "" {
		accept(v, "")
		if len(refs) > 0 {
			return refs
		}
	}

	area := doc.ProductArea()
	for _, sel := range galleryImageSelectors {
		full := false
		area.Find(sel).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			alt, _ := img.Attr("alt")
			if u := imageURLFrom(img); u != "" && accept(u, alt) {
				full = true
				return false
			}
			return true
		})
		if full {
			return refs
		}
		if len(refs) > 0 {
			// a matching selector tier ends the cascade
			return refs
		}
	}

	if ref, ok := e.largestImage(area, doc); ok {
		abs := ref.URL
		if !seen[abs] {
			refs = append(refs, ref)
		}
	}
	return refs
}

// imageURLFrom reads the first populated source attribute.
func imageURLFrom(img *goquery.Selection) string {
	for _, attr := range srcAttributes {
		if v, ok := img.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" && !strings.HasPrefix(v, "data:") {
				return v
			}
		}
	}
	return ""
}

// largestImage is the last-resort strategy: the biggest image in the
// product area by declared width*height, provided it clears the pixel
// floor and passes the filter. Images without declared dimensions are
// skipped since their true size is unknowable without fetching them.
func (e *Extractor) largestImage(area *goquery.Selection, doc *Document) (ImageRef, bool) {
	var best ImageRef
	bestArea := 0

	area.Find("img").Each(func(_ int, img *goquery.Selection) {
		w := intAttr(img, "width")
		h := intAttr(img, "height")
		px := w * h
		if px < e.cfg.MinImagePixelArea || px <= bestArea {
			return
		}
		u := imageURLFrom(img)
		if u == "" {
			return
		}
		abs := doc.ResolveURL(u)
		if abs == "" {
			return
		}
		if e.cfg.ImageFilter != nil && !e.cfg.ImageFilter(abs) {
			return
		}
		alt, _ := img.Attr("alt")
		best = ImageRef{URL: abs, Alt: alt}
		bestArea = px
	})

	return best, bestArea > 0
}

func intAttr(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0
	}
	return n
}
