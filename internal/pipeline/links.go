// internal/pipeline/links.go
package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/healthmart/catalogsync/internal/extract"
)

// productLinks collects unique product detail links from a listing
// page, in document order.
func productLinks(doc *extract.Document) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href*='/products/']").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := doc.ResolveURL(href)
		if abs == "" || seen[abs] {
			return
		}
		// listing and pagination links also contain /products; only
		// keep links with a slug segment after it
		if slugFromURL(abs) == "" {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	return links
}

// slugFromURL extracts the slug segment following /products/ from a
// detail page URL, with query and fragment stripped.
func slugFromURL(rawURL string) string {
	idx := strings.Index(rawURL, "/products/")
	if idx < 0 {
		return ""
	}
	slug := rawURL[idx+len("/products/"):]
	for _, cut := range []string{"?", "#", "/"} {
		if i := strings.Index(slug, cut); i >= 0 {
			slug = slug[:i]
		}
	}
	return slug
}
