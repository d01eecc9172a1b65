// internal/catalog/matcher.go
package catalog

import (
	"context"
	"strings"

	"github.com/healthmart/catalogsync/internal/config"
	"github.com/healthmart/catalogsync/internal/extract"
	"github.com/healthmart/catalogsync/internal/utils"
)

var matcherLogger = utils.NewComponentLogger("catalog-matcher")

// Matcher reconciles scraped and derived values against stored catalog
// rows. The lookup tables are injected at construction; nothing here
// reads package-level state. Writes are per-item: one product's failure
// never rolls back another's update.
type Matcher struct {
	store    *Store
	keywords []config.CategoryKeywords
	fallback string

	brands     []Brand
	categories map[string]Category // lowercased name -> row
}

// NewMatcher creates a matcher over the store using the injected
// category keyword table.
func NewMatcher(store *Store, matching config.MatchingConfig) *Matcher {
	return &Matcher{
		store:    store,
		keywords: matching.Categories,
		fallback: matching.FallbackCategory,
	}
}

// Load fetches the active brand and category rows the matcher resolves
// against. Call once per run; matching tables are read-only afterwards.
func (m *Matcher) Load(ctx context.Context) error {
	brands, err := m.store.ActiveBrands(ctx)
	if err != nil {
		return err
	}
	categories, err := m.store.ActiveCategories(ctx)
	if err != nil {
		return err
	}

	m.brands = brands
	m.categories = make(map[string]Category, len(categories))
	for _, c := range categories {
		m.categories[strings.ToLower(c.Name)] = c
	}
	matcherLogger.Infof("loaded %d brands and %d categories", len(brands), len(categories))
	return nil
}

// BestBrand finds the longest active brand name that is a
// case-insensitive prefix of the product name. Ties on length cannot
// occur for distinct names; a longer prefix always wins over a shorter
// one ("Now Foods" over "Now").
func BestBrand(productName string, brands []Brand) (Brand, bool) {
	lower := strings.ToLower(productName)
	var best Brand
	found := false
	for _, b := range brands {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			continue
		}
		if strings.HasPrefix(lower, strings.ToLower(name)) && len(name) > len(best.Name) {
			best = b
			found = true
		}
	}
	return best, found
}

// CategoryScore is one category's keyword score for a product.
type CategoryScore struct {
	Name  string
	Score int
}

// BestCategory scores every table entry against the product text: each
// keyword found as a case-insensitive substring contributes its length.
// The highest nonzero score wins; equal scores resolve to the earlier
// table entry, which is why the table is ordered. A zero-everywhere
// outcome selects the fallback name, or "" when none is configured.
func BestCategory(text string, table []config.CategoryKeywords, fallback string) CategoryScore {
	lower := strings.ToLower(text)
	best := CategoryScore{}
	for _, entry := range table {
		score := 0
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lower, kw) {
				score += len(kw)
			}
		}
		if score > best.Score {
			best = CategoryScore{Name: entry.Name, Score: score}
		}
	}
	if best.Score == 0 {
		return CategoryScore{Name: fallback, Score: 0}
	}
	return best
}

// AssignBrand matches the product name against active brands and writes
// the reference. Returns the matched brand name, "" when nothing
// matched (the product is left unset).
func (m *Matcher) AssignBrand(ctx context.Context, p *Product) (string, error) {
	brand, ok := BestBrand(p.Name, m.brands)
	if !ok {
		matcherLogger.Debugf("no brand prefix for product %d %q", p.ID, p.Name)
		return "", nil
	}
	if p.BrandID.Valid && p.BrandID.Int64 == brand.ID {
		return brand.Name, nil
	}
	if err := m.store.SetBrand(ctx, p.ID, brand.ID); err != nil {
		return "", err
	}
	matcherLogger.Infof("product %d %q -> brand %q", p.ID, p.Name, brand.Name)
	return brand.Name, nil
}

// AssignCategory scores the keyword table over the product text and
// writes the winning category when it exists as an active catalog row.
func (m *Matcher) AssignCategory(ctx context.Context, p *Product) (string, error) {
	result := BestCategory(p.SearchText(), m.keywords, m.fallback)
	if result.Name == "" {
		return "", nil
	}
	row, exists := m.categories[strings.ToLower(result.Name)]
	if !exists {
		matcherLogger.Warnf("matched category %q has no active catalog row", result.Name)
		return "", nil
	}
	if p.CategoryID.Valid && p.CategoryID.Int64 == row.ID {
		return row.Name, nil
	}
	if err := m.store.SetCategory(ctx, p.ID, row.ID); err != nil {
		return "", err
	}
	matcherLogger.Infof("product %d %q -> category %q (score %d)", p.ID, p.Name, row.Name, result.Score)
	return row.Name, nil
}

// GapFillResult reports which fields a reconciliation pass wrote.
type GapFillResult struct {
	PriceUpdated bool
	StockUpdated bool
}

// GapFill writes the candidate's price and stock onto the product, but
// only where the stored value is a recognized unknown sentinel. Stored
// non-zero values always win over scraped ones.
func (m *Matcher) GapFill(ctx context.Context, p *Product, c *extract.Candidate) (GapFillResult, error) {
	var res GapFillResult

	if c.HasPrice() && p.PriceUnknown() {
		if err := m.store.UpdatePrice(ctx, p.ID, c.Price); err != nil {
			return res, err
		}
		res.PriceUpdated = true
	}

	if p.StockUnknown() && c.StockQuantity > 0 {
		if err := m.store.UpdateInventory(ctx, p.ID, c.StockQuantity); err != nil {
			return res, err
		}
		res.StockUpdated = true
	}

	if res.PriceUpdated || res.StockUpdated {
		matcherLogger.Infof("product %d gap-filled: price=%v stock=%v",
			p.ID, res.PriceUpdated, res.StockUpdated)
	}
	return res, nil
}
