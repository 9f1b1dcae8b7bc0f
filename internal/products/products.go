package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrProductNotFound  = errors.New("product not found or inactive")
	ErrCategoryNotFound = errors.New("category not found or inactive")
	ErrNotOwner         = errors.New("product belongs to another seller")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

const productColumns = `id, name, description, price, category_id, seller_id, rating, is_active`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	var rating sql.NullFloat64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.SellerID, &rating, &p.IsActive)
	if err != nil {
		return Product{}, err
	}
	p.Rating = scanRating(rating)
	return p, nil
}

// GetActiveProduct resolves the current price and activity flags for a
// product. It is the lookup the cart uses before mutating anything.
func (c *Conf) GetActiveProduct(ctx context.Context, productID int64) (*ActiveProduct, error) {
	query := `
		SELECT p.id, p.price, p.is_active, cat.is_active
		FROM products p
		JOIN categories cat ON cat.id = p.category_id
		WHERE p.id = $1
	`
	var ap ActiveProduct
	err := c.db.QueryRowContext(ctx, query, productID).Scan(&ap.ProductID, &ap.Price, &ap.IsActive, &ap.CategoryActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &ap, nil
}

// InsertProduct creates a product owned by the given seller. The target
// category must exist and be active.
func (c *Conf) InsertProduct(ctx context.Context, np NewProduct, sellerID int64) (Product, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND is_active = TRUE)`,
		np.CategoryID).Scan(&exists)
	if err != nil {
		return Product{}, fmt.Errorf("failed to check category: %w", err)
	}
	if !exists {
		return Product{}, ErrCategoryNotFound
	}

	query := `
		INSERT INTO products (name, description, price, category_id, seller_id, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING ` + productColumns
	p, err := scanProduct(c.db.QueryRowContext(ctx, query, np.Name, np.Description, np.Price, np.CategoryID, sellerID))
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

// ListProducts returns every active product.
func (c *Conf) ListProducts(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = TRUE ORDER BY id`
	return c.queryProducts(ctx, query)
}

// ListByCategory returns the active products of an active category.
func (c *Conf) ListByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND is_active = TRUE)`,
		categoryID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}
	if !exists {
		return nil, ErrCategoryNotFound
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE category_id = $1 AND is_active = TRUE ORDER BY id`
	return c.queryProducts(ctx, query, categoryID)
}

// GetProductByID returns a single active product.
func (c *Conf) GetProductByID(ctx context.Context, productID int64) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = TRUE`
	p, err := scanProduct(c.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// UpdateProduct replaces the mutable fields of a product the seller owns.
func (c *Conf) UpdateProduct(ctx context.Context, productID int64, np NewProduct, sellerID int64) (Product, error) {
	current, err := c.ownedProduct(ctx, productID, sellerID)
	if err != nil {
		return Product{}, err
	}

	var exists bool
	err = c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND is_active = TRUE)`,
		np.CategoryID).Scan(&exists)
	if err != nil {
		return Product{}, fmt.Errorf("failed to check category: %w", err)
	}
	if !exists {
		return Product{}, ErrCategoryNotFound
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category_id = $4
		WHERE id = $5
		RETURNING ` + productColumns
	p, err := scanProduct(c.db.QueryRowContext(ctx, query, np.Name, np.Description, np.Price, np.CategoryID, current.ID))
	if err != nil {
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// DeleteProduct soft deletes a product the seller owns.
func (c *Conf) DeleteProduct(ctx context.Context, productID int64, sellerID int64) (Product, error) {
	if _, err := c.ownedProduct(ctx, productID, sellerID); err != nil {
		return Product{}, err
	}

	query := `UPDATE products SET is_active = FALSE WHERE id = $1 RETURNING ` + productColumns
	p, err := scanProduct(c.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		return Product{}, fmt.Errorf("failed to delete product: %w", err)
	}
	return p, nil
}

func (c *Conf) ownedProduct(ctx context.Context, productID int64, sellerID int64) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = TRUE`
	p, err := scanProduct(c.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	if p.SellerID != sellerID {
		return Product{}, ErrNotOwner
	}
	return p, nil
}

func (c *Conf) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return out, nil
}
