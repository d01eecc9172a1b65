// internal/catalog/models.go

// Package catalog owns the persisted product catalog: the relational
// store and the matcher that reconciles scraped values against it.
package catalog

import (
	"database/sql"
	"strconv"
	"strings"
)

// Product is one catalog row. Price is scanned as a string because the
// schema stores DECIMAL and the legacy data carries "0.00" as an
// unknown-price sentinel alongside NULL and 0.
type Product struct {
	ID                int64
	SKU               string
	Name              string
	Slug              string
	BrandID           sql.NullInt64
	CategoryID        sql.NullInt64
	Price             sql.NullString
	InventoryQuantity sql.NullInt64
	ShortDescription  string
	LongDescription   string
	IsActive          bool
}

// Brand is a matching target for name-prefix assignment.
type Brand struct {
	ID         int64
	Name       string
	WebsiteURL sql.NullString
	IsActive   bool
}

// Category is a matching target for keyword-score assignment.
type Category struct {
	ID       int64
	Name     string
	IsActive bool
}

// ProductImage relates a downloaded asset to its product.
type ProductImage struct {
	ID        int64
	ProductID int64
	ImageURL  string
	IsPrimary bool
	SortOrder int
}

// PriceValue parses the stored decimal. ok is false when the value is
// NULL or unparseable.
func (p *Product) PriceValue() (float64, bool) {
	if !p.Price.Valid {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Price.String), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PriceUnknown reports whether the stored price is one of the
// recognized unknown sentinels: NULL, 0, or the string "0.00". Only an
// unknown price may be gap-filled; a real stored price is never
// overwritten by reconciliation.
func (p *Product) PriceUnknown() bool {
	if !p.Price.Valid {
		return true
	}
	v, ok := p.PriceValue()
	return !ok || v == 0
}

// StockUnknown reports whether the stored inventory is the NULL/0
// unknown sentinel. The legacy schema overloads 0 to also mean "out of
// stock"; reconciliation treats it as fillable, favoring recovery of
// missing data over preserving an ambiguous zero.
func (p *Product) StockUnknown() bool {
	return !p.InventoryQuantity.Valid || p.InventoryQuantity.Int64 == 0
}

// SearchText is the combined text the category scorer runs over.
func (p *Product) SearchText() string {
	return strings.ToLower(p.Name + " " + p.ShortDescription + " " + p.LongDescription)
}
