package products

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Product is the catalog entity. Soft deleted products keep their rows with
// is_active = false so historical order items can still reference them.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int64           `json:"category_id"`
	SellerID    int64           `json:"seller_id"`
	Rating      *float64        `json:"rating"`
	IsActive    bool            `json:"is_active"`
}

// NewProduct is the payload accepted by create and update.
type NewProduct struct {
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	CategoryID  int64           `json:"category_id" validate:"required,min=1"`
}

// ActiveProduct is what the cart and checkout flows need to know about a
// product before touching it: the current price and the activity flags.
type ActiveProduct struct {
	ProductID      int64           `json:"product_id"`
	Price          decimal.Decimal `json:"price"`
	IsActive       bool            `json:"is_active"`
	CategoryActive bool            `json:"category_active"`
}

func scanRating(r sql.NullFloat64) *float64 {
	if !r.Valid {
		return nil
	}
	return &r.Float64
}
