// internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/lib/pq"              // postgres driver

	"github.com/healthmart/catalogsync/internal/config"
	"github.com/healthmart/catalogsync/internal/utils"
)

var storeLogger = utils.NewComponentLogger("catalog-store")

// Store wraps the catalog database. Queries are written with ?
// placeholders and rebound for the postgres dialect.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the catalog database and verifies the connection.
// A failure here is fatal to the whole run, unlike per-item errors.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", cfg.Driver, err)
	}

	storeLogger.Infof("connected to %s catalog database", cfg.Driver)
	return &Store{db: db, driver: cfg.Driver}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// rebind converts ? placeholders to $1..$n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const productColumns = `id, sku, name, slug, brand_id, category_id, price,
	inventory_quantity, short_description, long_description, is_active`

func scanProduct(row interface{ Scan(...interface{}) error }) (*Product, error) {
	var p Product
	var short, long sql.NullString
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Slug, &p.BrandID, &p.CategoryID,
		&p.Price, &p.InventoryQuantity, &short, &long, &p.IsActive)
	if err != nil {
		return nil, err
	}
	p.ShortDescription = short.String
	p.LongDescription = long.String
	return &p, nil
}

// ActiveProducts returns every active product.
func (s *Store) ActiveProducts(ctx context.Context) ([]*Product, error) {
	return s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active = 1 ORDER BY id`)
}

// ProductsMissingData returns active products with an unknown price or
// unknown inventory, the default work set for a sync run.
func (s *Store) ProductsMissingData(ctx context.Context) ([]*Product, error) {
	return s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE is_active = 1
		   AND (price IS NULL OR price = 0
		        OR inventory_quantity IS NULL OR inventory_quantity = 0)
		 ORDER BY id`)
}

// ProductsWithoutImages returns active products with no image rows,
// the work set for the image pipeline.
func (s *Store) ProductsWithoutImages(ctx context.Context) ([]*Product, error) {
	return s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products p
		 WHERE p.is_active = 1
		   AND NOT EXISTS (SELECT 1 FROM product_images i WHERE i.product_id = p.id)
		 ORDER BY p.id`)
}

// ProductsWithoutBrand returns active products with no brand reference.
func (s *Store) ProductsWithoutBrand(ctx context.Context) ([]*Product, error) {
	return s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active = 1 AND brand_id IS NULL ORDER BY id`)
}

// ProductsWithoutCategory returns active products with no category.
func (s *Store) ProductsWithoutCategory(ctx context.Context) ([]*Product, error) {
	return s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active = 1 AND category_id IS NULL ORDER BY id`)
}

// ProductBySlug looks up one product by its URL slug. Returns
// sql.ErrNoRows when absent.
func (s *Store) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+productColumns+` FROM products WHERE slug = ?`), slug)
	return scanProduct(row)
}

// ProductBySKU looks up one product by SKU. Returns sql.ErrNoRows when
// absent.
func (s *Store) ProductBySKU(ctx context.Context, sku string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+productColumns+` FROM products WHERE sku = ?`), sku)
	return scanProduct(row)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*Product, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("product query failed: %w", err)
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("product scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActiveBrands returns every active brand for prefix matching.
func (s *Store) ActiveBrands(ctx context.Context) ([]Brand, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, name, website_url, is_active FROM brands WHERE is_active = 1`))
	if err != nil {
		return nil, fmt.Errorf("brand query failed: %w", err)
	}
	defer rows.Close()

	var out []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.WebsiteURL, &b.IsActive); err != nil {
			return nil, fmt.Errorf("brand scan failed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ActiveCategories returns every active category for keyword matching.
func (s *Store) ActiveCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, name, is_active FROM product_categories WHERE is_active = 1`))
	if err != nil {
		return nil, fmt.Errorf("category query failed: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive); err != nil {
			return nil, fmt.Errorf("category scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdatePrice writes a reconciled price. The gap-fill decision belongs
// to the matcher; the WHERE guard repeats it so a concurrent storefront
// write is never clobbered.
func (s *Store) UpdatePrice(ctx context.Context, productID int64, price float64) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE products SET price = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (price IS NULL OR price = 0)`),
		price, productID)
	if err != nil {
		return fmt.Errorf("price update for product %d failed: %w", productID, err)
	}
	return nil
}

// UpdateInventory writes a reconciled inventory quantity under the same
// gap-fill guard.
func (s *Store) UpdateInventory(ctx context.Context, productID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE products SET inventory_quantity = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (inventory_quantity IS NULL OR inventory_quantity = 0)`),
		quantity, productID)
	if err != nil {
		return fmt.Errorf("inventory update for product %d failed: %w", productID, err)
	}
	return nil
}

// SetBrand assigns a brand reference.
func (s *Store) SetBrand(ctx context.Context, productID, brandID int64) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE products SET brand_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		brandID, productID)
	if err != nil {
		return fmt.Errorf("brand assignment for product %d failed: %w", productID, err)
	}
	return nil
}

// SetCategory assigns a category reference.
func (s *Store) SetCategory(ctx context.Context, productID, categoryID int64) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE products SET category_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		categoryID, productID)
	if err != nil {
		return fmt.Errorf("category assignment for product %d failed: %w", productID, err)
	}
	return nil
}

// UpsertImage records a downloaded asset. The primary image is kept
// unique per product by updating the existing primary row instead of
// inserting a second one.
func (s *Store) UpsertImage(ctx context.Context, img ProductImage) error {
	if img.IsPrimary {
		var existingID int64
		err := s.db.QueryRowContext(ctx, s.rebind(
			`SELECT id FROM product_images WHERE product_id = ? AND is_primary = 1`),
			img.ProductID).Scan(&existingID)
		switch {
		case err == nil:
			_, err = s.db.ExecContext(ctx, s.rebind(
				`UPDATE product_images SET image_url = ?, sort_order = ? WHERE id = ?`),
				img.ImageURL, img.SortOrder, existingID)
			if err != nil {
				return fmt.Errorf("primary image update for product %d failed: %w", img.ProductID, err)
			}
			return nil
		case err != sql.ErrNoRows:
			return fmt.Errorf("primary image lookup for product %d failed: %w", img.ProductID, err)
		}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO product_images (product_id, image_url, is_primary, sort_order)
		 VALUES (?, ?, ?, ?)`),
		img.ProductID, img.ImageURL, img.IsPrimary, img.SortOrder)
	if err != nil {
		return fmt.Errorf("image insert for product %d failed: %w", img.ProductID, err)
	}
	return nil
}

// ImageCount returns the number of image rows for a product.
func (s *Store) ImageCount(ctx context.Context, productID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM product_images WHERE product_id = ?`), productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("image count for product %d failed: %w", productID, err)
	}
	return n, nil
}
