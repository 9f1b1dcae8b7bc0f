package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicAccountCreated = `user-service.account-created`
	TopicOrderPlaced    = `order-service.order-placed`
)

// AccountCreatedEvent announces a fresh signup.
type AccountCreatedEvent struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderPlacedEvent announces a committed checkout. Published after the
// transaction commits; consumers must tolerate duplicates.
type OrderPlacedEvent struct {
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}
