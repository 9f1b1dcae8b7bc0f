package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"store-backend/internal/pg"
	"store-backend/internal/products"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrItemNotFound     = errors.New("cart item not found")
	ErrProductNotFound  = errors.New("product not found or inactive")
	ErrNegativeQuantity = errors.New("quantity cannot drop below zero")
	ErrNoActiveItems    = errors.New("no active items in cart")
)

// Currency reported by Summary. Cart totals follow live catalog prices, so
// the currency is a property of the catalog, not of any single cart.
const Currency = "RUB"

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// GetOrCreateCart returns the user's active cart with its active items,
// creating an empty cart lazily on first access. The partial unique index
// on carts(user_id) WHERE is_active makes the create race-safe: a loser of
// the race re-reads the winner's row.
func (c *Conf) GetOrCreateCart(ctx context.Context, userID int64) (*Cart, error) {
	cart, err := c.activeCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	if errors.Is(err, ErrCartNotFound) {
		queryCreate := `
			INSERT INTO carts (user_id, is_active)
			VALUES ($1, TRUE)
			RETURNING id, user_id, is_active
		`
		cart = &Cart{}
		insertErr := c.db.QueryRowContext(ctx, queryCreate, userID).
			Scan(&cart.ID, &cart.UserID, &cart.IsActive)
		if insertErr != nil {
			if !pg.IsUniqueViolation(insertErr) {
				return nil, fmt.Errorf("failed to create cart: %w", insertErr)
			}
			// Lost the creation race, the concurrent winner's cart serves.
			cart, err = c.activeCart(ctx, userID)
			if err != nil {
				return nil, err
			}
		}
	}

	items, err := c.activeItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

// AddItem puts quantity units of a product into the user's active cart. If
// an active line for the product already exists its quantity is incremented
// instead of inserting a duplicate row.
func (c *Conf) AddItem(ctx context.Context, userID int64, productID int64, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	var item CartItem
	err := pg.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		cartID, err := lockOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		var productActive bool
		err = tx.QueryRowContext(ctx,
			`SELECT is_active FROM products WHERE id = $1`, productID).Scan(&productActive)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to query product: %w", err)
		}
		if !productActive {
			return ErrProductNotFound
		}

		queryExisting := `
			SELECT id, quantity
			FROM cart_items
			WHERE cart_id = $1 AND product_id = $2 AND is_active = TRUE
		`
		var existingID int64
		var existingQuantity int
		err = tx.QueryRowContext(ctx, queryExisting, cartID, productID).Scan(&existingID, &existingQuantity)
		switch {
		case err == nil:
			queryUpdate := `
				UPDATE cart_items
				SET quantity = quantity + $1
				WHERE id = $2
				RETURNING id, cart_id, product_id, quantity, is_active
			`
			err = tx.QueryRowContext(ctx, queryUpdate, quantity, existingID).
				Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.IsActive)
			if err != nil {
				return fmt.Errorf("failed to update cart item quantity: %w", err)
			}
		case errors.Is(err, sql.ErrNoRows):
			queryInsert := `
				INSERT INTO cart_items (cart_id, product_id, quantity, is_active)
				VALUES ($1, $2, $3, TRUE)
				RETURNING id, cart_id, product_id, quantity, is_active
			`
			err = tx.QueryRowContext(ctx, queryInsert, cartID, productID, quantity).
				Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.IsActive)
			if err != nil {
				return fmt.Errorf("failed to insert cart item: %w", err)
			}
		default:
			return fmt.Errorf("failed to query cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	product, err := c.loadProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	item.Product = product
	return &item, nil
}

// UpdateItemQuantity applies a signed delta to an item's quantity. A delta
// that would push the quantity below zero fails the whole operation and
// leaves the row untouched; zero itself is a legal transient value.
func (c *Conf) UpdateItemQuantity(ctx context.Context, userID int64, itemID int64, delta int) (*CartItem, error) {
	var item CartItem
	err := pg.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		cartID, err := lockOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		queryItem := `
			SELECT id, quantity
			FROM cart_items
			WHERE cart_id = $1 AND id = $2 AND is_active = TRUE
		`
		var currentQuantity int
		var id int64
		err = tx.QueryRowContext(ctx, queryItem, cartID, itemID).Scan(&id, &currentQuantity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrItemNotFound
			}
			return fmt.Errorf("failed to query cart item: %w", err)
		}

		newQuantity := currentQuantity + delta
		if newQuantity < 0 {
			return ErrNegativeQuantity
		}

		queryUpdate := `
			UPDATE cart_items
			SET quantity = $1
			WHERE id = $2
			RETURNING id, cart_id, product_id, quantity, is_active
		`
		err = tx.QueryRowContext(ctx, queryUpdate, newQuantity, id).
			Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.IsActive)
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	product, err := c.loadProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	item.Product = product
	return &item, nil
}

// RemoveItem soft deletes one item of the user's active cart.
func (c *Conf) RemoveItem(ctx context.Context, userID int64, itemID int64) (*CartItem, error) {
	var item CartItem
	err := pg.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		cartID, err := lockOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		query := `
			UPDATE cart_items
			SET is_active = FALSE
			WHERE cart_id = $1 AND id = $2 AND is_active = TRUE
			RETURNING id, cart_id, product_id, quantity, is_active
		`
		err = tx.QueryRowContext(ctx, query, cartID, itemID).
			Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.IsActive)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrItemNotFound
			}
			return fmt.Errorf("failed to remove cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Clear soft deletes every active item of the user's active cart. Reports
// ErrNoActiveItems when there was nothing to clear.
func (c *Conf) Clear(ctx context.Context, userID int64) error {
	return pg.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		cartID, err := lockOrCreateCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE cart_items SET is_active = FALSE WHERE cart_id = $1 AND is_active = TRUE`, cartID)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return ErrNoActiveItems
		}
		return nil
	})
}

// Summary aggregates the active items of the user's cart against current
// catalog prices. Unlike order totals this value moves with the catalog.
func (c *Conf) Summary(ctx context.Context, userID int64) (*Summary, error) {
	var cartID int64
	err := c.db.QueryRowContext(ctx,
		`SELECT id FROM carts WHERE user_id = $1 AND is_active = TRUE`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	query := `
		SELECT COALESCE(SUM(ci.quantity), 0), COALESCE(SUM(p.price * ci.quantity), 0)
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1 AND ci.is_active = TRUE
	`
	s := Summary{Currency: Currency}
	err = c.db.QueryRowContext(ctx, query, cartID).Scan(&s.TotalItems, &s.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize cart: %w", err)
	}
	return &s, nil
}

// lockOrCreateCart returns the id of the user's active cart, holding a row
// lock on it for the rest of the transaction. No active cart means one is
// created, which also takes effect atomically with the caller's writes.
func lockOrCreateCart(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var cartID int64
	queryActiveCart := `
		SELECT id
		FROM carts
		WHERE user_id = $1 AND is_active = TRUE
		FOR UPDATE
	`
	err := tx.QueryRowContext(ctx, queryActiveCart, userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query active cart: %w", err)
	}

	queryCreateCart := `
		INSERT INTO carts (user_id, is_active)
		VALUES ($1, TRUE)
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, queryCreateCart, userID).Scan(&cartID); err != nil {
		return 0, fmt.Errorf("failed to create cart: %w", err)
	}
	return cartID, nil
}

func (c *Conf) activeCart(ctx context.Context, userID int64) (*Cart, error) {
	var cart Cart
	err := c.db.QueryRowContext(ctx,
		`SELECT id, user_id, is_active FROM carts WHERE user_id = $1 AND is_active = TRUE`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return &cart, nil
}

// activeItems loads the active lines of a cart together with product data;
// lines whose product or category has been deactivated are hidden from the
// default view, matching the listing rules of the catalog.
func (c *Conf) activeItems(ctx context.Context, cartID int64) ([]CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.is_active,
		       p.id, p.name, p.description, p.price, p.category_id, p.seller_id, p.rating, p.is_active
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id AND p.is_active = TRUE
		JOIN categories cat ON cat.id = p.category_id AND cat.is_active = TRUE
		WHERE ci.cart_id = $1 AND ci.is_active = TRUE
		ORDER BY ci.id
	`
	rows, err := c.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		var item CartItem
		var p products.Product
		var rating sql.NullFloat64
		err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.IsActive,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.SellerID, &rating, &p.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		if rating.Valid {
			r := rating.Float64
			p.Rating = &r
		}
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func (c *Conf) loadProduct(ctx context.Context, productID int64) (*products.Product, error) {
	query := `
		SELECT id, name, description, price, category_id, seller_id, rating, is_active
		FROM products
		WHERE id = $1
	`
	var p products.Product
	var rating sql.NullFloat64
	err := c.db.QueryRowContext(ctx, query, productID).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.SellerID, &rating, &p.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if rating.Valid {
		r := rating.Float64
		p.Rating = &r
	}
	return &p, nil
}
