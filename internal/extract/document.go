// internal/extract/document.go

// Package extract derives product fields from fetched HTML. Every field
// is resolved through an ordered cascade of strategies, tried
// top-to-bottom until one yields a plausible value: embedded product
// schema first, then meta tags, then ranked CSS selectors, then
// restricted free-text pattern matching. Absence of data is a normal
// outcome and is reported through zero-value sentinels, never errors.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document wraps a parsed page plus the base URL used to resolve
// relative references.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// NewDocument parses HTML and records the page URL for reference
// resolution.
func NewDocument(body []byte, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	return &Document{doc: doc, base: base}, nil
}

// Find exposes goquery selection over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// ResolveURL turns a possibly-relative reference into an absolute URL.
// Protocol-relative references inherit the page scheme. Returns "" for
// unresolvable input.
func (d *Document) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if d.base == nil {
		return ""
	}
	return d.base.ResolveReference(u).String()
}

// productAreaSelectors rank the containers likely to hold the product
// itself, so image and price probing stays clear of header, footer, and
// advertisement markup.
var productAreaSelectors = []string{
	"[itemtype*='schema.org/Product']",
	".product-detail",
	".product-details",
	".product-page",
	".product-main",
	".product-info",
	"#product",
	".product",
	"main",
}

// ProductArea returns the most specific product container found, or the
// document body when no container matches.
func (d *Document) ProductArea() *goquery.Selection {
	for _, sel := range productAreaSelectors {
		if s := d.doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return d.doc.Find("body")
}

// metaContent reads the content attribute of the first matching meta
// tag, trying property= then name= forms.
func (d *Document) metaContent(key string) string {
	for _, sel := range []string{
		fmt.Sprintf(`meta[property=%q]`, key),
		fmt.Sprintf(`meta[name=%q]`, key),
	} {
		if v, ok := d.doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// selectorText returns the trimmed text of the first selector in the
// ranked list that yields non-empty text.
func (d *Document) selectorText(selectors []string) string {
	for _, sel := range selectors {
		if txt := strings.TrimSpace(d.doc.Find(sel).First().Text()); txt != "" {
			return txt
		}
	}
	return ""
}
