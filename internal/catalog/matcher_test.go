// internal/catalog/matcher_test.go
package catalog

import (
	"database/sql"
	"testing"

	"github.com/healthmart/catalogsync/internal/config"
)

func TestBestBrandPrefersLongestPrefix(t *testing.T) {
	brands := []Brand{
		{ID: 1, Name: "Now"},
		{ID: 2, Name: "Now Foods"},
		{ID: 3, Name: "Solgar"},
	}

	brand, ok := BestBrand("Now Foods CoQ10 100mg", brands)
	if !ok {
		t.Fatal("expected a brand match")
	}
	if brand.Name != "Now Foods" {
		t.Errorf("matched %q, want the longer prefix %q", brand.Name, "Now Foods")
	}
}

func TestBestBrandCaseInsensitive(t *testing.T) {
	brands := []Brand{{ID: 1, Name: "SOLGAR"}}
	brand, ok := BestBrand("solgar zinc picolinate", brands)
	if !ok || brand.ID != 1 {
		t.Errorf("case-insensitive prefix match failed: %+v ok=%v", brand, ok)
	}
}

func TestBestBrandNoMatch(t *testing.T) {
	brands := []Brand{{ID: 1, Name: "Now Foods"}}
	if _, ok := BestBrand("Thorne Basic Nutrients", brands); ok {
		t.Error("expected no match, brand should remain unset")
	}
}

func TestBestCategoryKeywordScoring(t *testing.T) {
	table := []config.CategoryKeywords{
		{Name: "Heart Health", Keywords: []string{"heart", "cardiac"}},
		{Name: "General", Keywords: nil},
	}

	got := BestCategory("Heart Health Formula with cardiac support", table, "General")
	if got.Name != "Heart Health" {
		t.Errorf("category = %q, want Heart Health", got.Name)
	}
	// len("heart") + len("cardiac")
	if got.Score != 12 {
		t.Errorf("score = %d, want 12", got.Score)
	}
}

func TestBestCategoryFallbackOnZeroScore(t *testing.T) {
	table := []config.CategoryKeywords{
		{Name: "Heart Health", Keywords: []string{"heart"}},
		{Name: "General", Keywords: nil},
	}

	got := BestCategory("Plain unscented soap bar", table, "General")
	if got.Name != "General" || got.Score != 0 {
		t.Errorf("got %+v, want General fallback at score 0", got)
	}
}

func TestBestCategoryTieBreaksByTableOrder(t *testing.T) {
	table := []config.CategoryKeywords{
		{Name: "First", Keywords: []string{"omega"}},
		{Name: "Second", Keywords: []string{"omega"}},
	}

	got := BestCategory("omega blend", table, "")
	if got.Name != "First" {
		t.Errorf("tie resolved to %q, want the earlier table entry", got.Name)
	}
}

func TestBestCategoryNoFallbackConfigured(t *testing.T) {
	table := []config.CategoryKeywords{{Name: "Vitamins", Keywords: []string{"vitamin"}}}
	got := BestCategory("unrelated text", table, "")
	if got.Name != "" {
		t.Errorf("got %q, want empty when no fallback exists", got.Name)
	}
}

func TestPriceUnknownSentinels(t *testing.T) {
	tests := []struct {
		name    string
		price   sql.NullString
		unknown bool
	}{
		{"null price", sql.NullString{}, true},
		{"zero string", sql.NullString{String: "0", Valid: true}, true},
		{"legacy 0.00 string", sql.NullString{String: "0.00", Valid: true}, true},
		{"real price", sql.NullString{String: "12.50", Valid: true}, false},
		{"unparseable", sql.NullString{String: "n/a", Valid: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: tt.price}
			if got := p.PriceUnknown(); got != tt.unknown {
				t.Errorf("PriceUnknown(%v) = %v, want %v", tt.price, got, tt.unknown)
			}
		})
	}
}

func TestStockUnknownSentinels(t *testing.T) {
	if !(&Product{}).StockUnknown() {
		t.Error("null inventory should be unknown")
	}
	if !(&Product{InventoryQuantity: sql.NullInt64{Int64: 0, Valid: true}}).StockUnknown() {
		t.Error("zero inventory should be treated as fillable")
	}
	if (&Product{InventoryQuantity: sql.NullInt64{Int64: 42, Valid: true}}).StockUnknown() {
		t.Error("real inventory should not be unknown")
	}
}

func TestRebindPostgres(t *testing.T) {
	s := &Store{driver: "postgres"}
	got := s.rebind("UPDATE products SET price = ? WHERE id = ? AND (price IS NULL OR price = 0)")
	want := "UPDATE products SET price = $1 WHERE id = $2 AND (price IS NULL OR price = 0)"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	m := &Store{driver: "mysql"}
	q := "SELECT id FROM brands WHERE name = ?"
	if m.rebind(q) != q {
		t.Error("mysql queries must pass through unchanged")
	}
}
