package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"store-backend/internal/pg"
	"store-backend/internal/products"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCheckoutConflict = errors.New("conflicting checkout in progress")
	ErrOrderNotFound    = errors.New("order not found")
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

// Checkout converts the user's active cart into an order in one transaction:
//
//  1. lock the active cart row, so concurrent checkouts serialize;
//  2. abort when there is no cart or no active item;
//  3. insert the order first to obtain its id;
//  4. copy every active cart line into an order item, freezing the current
//     catalog price and accumulating the total in decimal arithmetic;
//  5. store the total, deactivate the consumed lines and the cart itself,
//     and provision a fresh active cart for the user;
//  6. commit; any failure rolls everything back.
//
// A unique violation on the one-active-cart-per-user index means a
// concurrent checkout won the race; it surfaces as ErrCheckoutConflict and
// is safe to resubmit.
func (c *Conf) Checkout(ctx context.Context, userID int64) (*Order, error) {
	var orderID int64
	err := pg.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		queryLockCart := `
			SELECT id
			FROM carts
			WHERE user_id = $1 AND is_active = TRUE
			FOR UPDATE
		`
		var cartID int64
		err := tx.QueryRowContext(ctx, queryLockCart, userID).Scan(&cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEmptyCart
			}
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		queryItems := `
			SELECT ci.id, ci.product_id, ci.quantity, p.price
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1 AND ci.is_active = TRUE
			ORDER BY ci.id
		`
		rows, err := tx.QueryContext(ctx, queryItems, cartID)
		if err != nil {
			return fmt.Errorf("failed to query cart items: %w", err)
		}

		type line struct {
			itemID    int64
			productID int64
			quantity  int
			price     decimal.Decimal
		}
		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.itemID, &l.productID, &l.quantity, &l.price); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan cart item: %w", err)
			}
			lines = append(lines, l)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating cart items: %w", err)
		}
		rows.Close()

		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Parent first: children reference the generated order id.
		queryInsertOrder := `
			INSERT INTO orders (user_id, status, total_price)
			VALUES ($1, $2, 0)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, queryInsertOrder, userID, StatusPending).Scan(&orderID); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		queryInsertItem := `
			INSERT INTO order_items (order_id, product_id, price, quantity)
			VALUES ($1, $2, $3, $4)
		`
		total := decimal.Zero
		for _, l := range lines {
			if _, err := tx.ExecContext(ctx, queryInsertItem, orderID, l.productID, l.price, l.quantity); err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
			total = total.Add(l.price.Mul(decimal.NewFromInt(int64(l.quantity))))
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET total_price = $1, updated_at = NOW() WHERE id = $2`, total, orderID); err != nil {
			return fmt.Errorf("failed to store order total: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE cart_items SET is_active = FALSE WHERE cart_id = $1 AND is_active = TRUE`, cartID); err != nil {
			return fmt.Errorf("failed to deactivate cart items: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE carts SET is_active = FALSE WHERE id = $1`, cartID); err != nil {
			return fmt.Errorf("failed to deactivate cart: %w", err)
		}

		// The user is never left without an active cart.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO carts (user_id, is_active) VALUES ($1, TRUE)`, userID); err != nil {
			return fmt.Errorf("failed to create fresh cart: %w", err)
		}
		return nil
	})
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, ErrCheckoutConflict
		}
		return nil, err
	}

	// Re-read the committed order with its items for the response.
	order, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// List returns the user's orders, newest first, each with its frozen items.
// Product metadata is joined live and omitted for products that have been
// deactivated since purchase.
func (c *Conf) List(ctx context.Context, userID int64) ([]Order, error) {
	query := `
		SELECT o.id, o.user_id, o.status, o.total_price, o.created_at, o.updated_at,
		       oi.id, oi.product_id, oi.price, oi.quantity,
		       p.id, p.name, p.description, p.price, p.category_id, p.seller_id, p.rating
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p ON p.id = oi.product_id AND p.is_active = TRUE
		WHERE o.user_id = $1
		ORDER BY o.id DESC, oi.id
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	byID := map[int64]int{}
	for rows.Next() {
		var o Order
		var item OrderItem
		var pID sql.NullInt64
		var pName, pDescription sql.NullString
		var pPrice decimal.NullDecimal
		var pCategoryID, pSellerID sql.NullInt64
		var pRating sql.NullFloat64

		err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt,
			&item.ID, &item.ProductID, &item.Price, &item.Quantity,
			&pID, &pName, &pDescription, &pPrice, &pCategoryID, &pSellerID, &pRating)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}

		item.OrderID = o.ID
		if pID.Valid {
			p := products.Product{
				ID:          pID.Int64,
				Name:        pName.String,
				Description: pDescription.String,
				Price:       pPrice.Decimal,
				CategoryID:  pCategoryID.Int64,
				SellerID:    pSellerID.Int64,
				IsActive:    true,
			}
			if pRating.Valid {
				r := pRating.Float64
				p.Rating = &r
			}
			item.Product = &p
		}

		idx, seen := byID[o.ID]
		if !seen {
			out = append(out, o)
			idx = len(out) - 1
			byID[o.ID] = idx
		}
		out[idx].Items = append(out[idx].Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return out, nil
}

// GetByID returns one of the user's orders by filtering the user's order
// list; at the current scale this matches a direct lookup observably.
func (c *Conf) GetByID(ctx context.Context, userID int64, orderID int64) (*Order, error) {
	all, err := c.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == orderID {
			return &all[i], nil
		}
	}
	return nil, ErrOrderNotFound
}

func (c *Conf) getOrder(ctx context.Context, orderID int64) (*Order, error) {
	query := `SELECT id, user_id, status, total_price, created_at, updated_at FROM orders WHERE id = $1`
	var o Order
	err := c.db.QueryRowContext(ctx, query, orderID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	queryItems := `
		SELECT id, order_id, product_id, price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, queryItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return &o, nil
}
