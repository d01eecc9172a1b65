// internal/assets/validator.go

// Package assets filters candidate image URLs and downloads the
// survivors to local storage. Validation is a pure URL-string judgment;
// nothing is fetched to decide.
package assets

import (
	"net/url"
	"strings"
)

// denySubstrings reject URLs that are almost certainly not product
// photography: tracking beacons, chrome, placeholders.
var denySubstrings = []string{
	"tracking",
	"pixel.gif",
	"placeholder",
	"logo",
	"icon",
	"spinner",
	"1x1",
	"transparent",
}

// promoSubstrings are rejected unless explicitly permitted; some brand
// sites serve legitimate product shots from /promo/ paths.
var promoSubstrings = []string{
	"banner",
	"promo",
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

// pathHints accept extension-less URLs whose path suggests image
// delivery (CDN resize endpoints and the like).
var pathHints = []string{"/image", "/img", "/product", "/media"}

// Validator vets image URLs against the deny list and scheme/extension
// requirements.
type Validator struct {
	allowPromo bool
	extraDeny  []string
}

// NewValidator creates a validator. allowPromo permits banner/promo
// URL segments; extraDeny appends site-specific deny substrings.
func NewValidator(allowPromo bool, extraDeny ...string) *Validator {
	return &Validator{allowPromo: allowPromo, extraDeny: extraDeny}
}

// IsValidImage reports whether the URL is worth downloading. The scheme
// must be http(s); any deny-list hit fails; a recognized image extension
// passes; otherwise a path hint is required.
func (v *Validator) IsValidImage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	lower := strings.ToLower(rawURL)
	for _, deny := range denySubstrings {
		if strings.Contains(lower, deny) {
			return false
		}
	}
	if !v.allowPromo {
		for _, deny := range promoSubstrings {
			if strings.Contains(lower, deny) {
				return false
			}
		}
	}
	for _, deny := range v.extraDeny {
		if deny != "" && strings.Contains(lower, strings.ToLower(deny)) {
			return false
		}
	}

	lowerPath := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	for _, hint := range pathHints {
		if strings.Contains(lowerPath, hint) {
			return true
		}
	}
	return false
}
