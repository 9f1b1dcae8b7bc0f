package cart

import (
	"github.com/shopspring/decimal"

	"store-backend/internal/products"
)

// Cart is the mutable per-user aggregate. A user has at most one cart with
// IsActive = true; checkout deactivates it and provisions a fresh one.
type Cart struct {
	ID       int64      `json:"id"`
	UserID   int64      `json:"user_id"`
	IsActive bool       `json:"is_active"`
	Items    []CartItem `json:"items"`
}

// CartItem is one product line inside a cart. IsActive = false marks a
// logically deleted line; such lines never reach totals or checkout.
type CartItem struct {
	ID        int64             `json:"id"`
	CartID    int64             `json:"cart_id"`
	ProductID int64             `json:"product_id"`
	Quantity  int               `json:"quantity"`
	IsActive  bool              `json:"is_active"`
	Product   *products.Product `json:"product,omitempty"`
}

// Summary is the live aggregation over the active items of a cart. Prices
// are the current catalog prices, not the frozen order prices.
type Summary struct {
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
}
