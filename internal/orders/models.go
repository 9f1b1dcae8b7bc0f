package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"store-backend/internal/products"
)

// OrderStatus enumerates the order lifecycle. Checkout always produces
// StatusPending; the remaining transitions belong to a payment flow that
// lives outside this service.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
	StatusCompleted OrderStatus = "completed"
)

// Order is immutable after checkout apart from status transitions. The
// total is the value frozen at checkout time, never recomputed on read.
type Order struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Items      []OrderItem     `json:"items"`
}

// OrderItem snapshots the unit price and quantity of a cart line at the
// moment of checkout. Product is display metadata resolved at read time and
// is nil when the product has since been deactivated; Price and Quantity
// stay as purchased regardless.
type OrderItem struct {
	ID        int64             `json:"id"`
	OrderID   int64             `json:"order_id"`
	ProductID int64             `json:"product_id"`
	Price     decimal.Decimal   `json:"price"`
	Quantity  int               `json:"quantity"`
	Product   *products.Product `json:"product,omitempty"`
}
