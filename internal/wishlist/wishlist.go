package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"store-backend/internal/pg"
	"store-backend/internal/products"
)

var (
	ErrProductNotFound = errors.New("product not found or inactive")
	ErrItemNotFound    = errors.New("wishlist item not found")
	ErrNoActiveItems   = errors.New("no active items in wishlist")
)

// Wishlist mirrors the cart structurally, minus quantities and checkout.
type Wishlist struct {
	ID     int64          `json:"id"`
	UserID int64          `json:"user_id"`
	Items  []WishlistItem `json:"items"`
}

type WishlistItem struct {
	ID         int64             `json:"id"`
	WishlistID int64             `json:"wishlist_id"`
	ProductID  int64             `json:"product_id"`
	IsActive   bool              `json:"is_active"`
	Product    *products.Product `json:"product,omitempty"`
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// GetOrCreateWishlist returns the user's wishlist with its active items,
// creating it lazily on first access.
func (c *Conf) GetOrCreateWishlist(ctx context.Context, userID int64) (*Wishlist, error) {
	w, err := c.findWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = &Wishlist{}
		query := `INSERT INTO wishlists (user_id) VALUES ($1) RETURNING id, user_id`
		insertErr := c.db.QueryRowContext(ctx, query, userID).Scan(&w.ID, &w.UserID)
		if insertErr != nil {
			if !pg.IsUniqueViolation(insertErr) {
				return nil, fmt.Errorf("failed to create wishlist: %w", insertErr)
			}
			if w, err = c.findWishlist(ctx, userID); err != nil {
				return nil, err
			}
		}
	}

	items, err := c.activeItems(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	w.Items = items
	return w, nil
}

// AddProduct puts a product on the wishlist; adding a product that is
// already there is a no-op returning the existing item.
func (c *Conf) AddProduct(ctx context.Context, userID int64, productID int64) (*WishlistItem, error) {
	w, err := c.GetOrCreateWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND is_active = TRUE)`, productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	var item WishlistItem
	queryExisting := `
		SELECT id, wishlist_id, product_id, is_active
		FROM wishlist_items
		WHERE wishlist_id = $1 AND product_id = $2 AND is_active = TRUE
	`
	err = c.db.QueryRowContext(ctx, queryExisting, w.ID, productID).
		Scan(&item.ID, &item.WishlistID, &item.ProductID, &item.IsActive)
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query wishlist item: %w", err)
	}

	queryInsert := `
		INSERT INTO wishlist_items (wishlist_id, product_id, is_active)
		VALUES ($1, $2, TRUE)
		RETURNING id, wishlist_id, product_id, is_active
	`
	err = c.db.QueryRowContext(ctx, queryInsert, w.ID, productID).
		Scan(&item.ID, &item.WishlistID, &item.ProductID, &item.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to insert wishlist item: %w", err)
	}
	return &item, nil
}

// RemoveItem soft deletes one wishlist item.
func (c *Conf) RemoveItem(ctx context.Context, userID int64, itemID int64) (*WishlistItem, error) {
	w, err := c.GetOrCreateWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE wishlist_items
		SET is_active = FALSE
		WHERE wishlist_id = $1 AND id = $2 AND is_active = TRUE
		RETURNING id, wishlist_id, product_id, is_active
	`
	var item WishlistItem
	err = c.db.QueryRowContext(ctx, query, w.ID, itemID).
		Scan(&item.ID, &item.WishlistID, &item.ProductID, &item.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return &item, nil
}

// Clear soft deletes all active wishlist items; nothing active reports
// ErrNoActiveItems.
func (c *Conf) Clear(ctx context.Context, userID int64) error {
	w, err := c.GetOrCreateWishlist(ctx, userID)
	if err != nil {
		return err
	}

	res, err := c.db.ExecContext(ctx,
		`UPDATE wishlist_items SET is_active = FALSE WHERE wishlist_id = $1 AND is_active = TRUE`, w.ID)
	if err != nil {
		return fmt.Errorf("failed to clear wishlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNoActiveItems
	}
	return nil
}

// ItemsCount returns the number of active items on the user's wishlist.
func (c *Conf) ItemsCount(ctx context.Context, userID int64) (int, error) {
	w, err := c.GetOrCreateWishlist(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(w.Items), nil
}

func (c *Conf) findWishlist(ctx context.Context, userID int64) (*Wishlist, error) {
	var w Wishlist
	err := c.db.QueryRowContext(ctx,
		`SELECT id, user_id FROM wishlists WHERE user_id = $1`, userID).Scan(&w.ID, &w.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	return &w, nil
}

func (c *Conf) activeItems(ctx context.Context, wishlistID int64) ([]WishlistItem, error) {
	query := `
		SELECT wi.id, wi.wishlist_id, wi.product_id, wi.is_active,
		       p.id, p.name, p.description, p.price, p.category_id, p.seller_id, p.rating, p.is_active
		FROM wishlist_items wi
		JOIN products p ON p.id = wi.product_id AND p.is_active = TRUE
		WHERE wi.wishlist_id = $1 AND wi.is_active = TRUE
		ORDER BY wi.id
	`
	rows, err := c.db.QueryContext(ctx, query, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist items: %w", err)
	}
	defer rows.Close()

	var items []WishlistItem
	for rows.Next() {
		var item WishlistItem
		var p products.Product
		var rating sql.NullFloat64
		err := rows.Scan(&item.ID, &item.WishlistID, &item.ProductID, &item.IsActive,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.SellerID, &rating, &p.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		if rating.Valid {
			r := rating.Float64
			p.Rating = &r
		}
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist items: %w", err)
	}
	return items, nil
}
