package orders

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"store-backend/migrations"
)

// openTestDB connects to the database named by TEST_DATABASE_DSN and brings
// the schema up. Tests that need a real database skip when the variable is
// unset, so the unit suite stays runnable without infrastructure.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."))

	_, err = db.Exec(`TRUNCATE users, categories, products, carts, cart_items, orders, order_items, reviews, wishlists, wishlist_items RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func seedCheckoutFixture(t *testing.T, db *sql.DB) (userID int64) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO users (email, hashed_password, role) VALUES ('buyer@test.local', 'x', 'buyer') RETURNING id`).
		Scan(&userID))

	var categoryID int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO categories (name, is_active) VALUES ('peripherals', TRUE) RETURNING id`).
		Scan(&categoryID))

	var sellerID int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO users (email, hashed_password, role) VALUES ('seller@test.local', 'x', 'seller') RETURNING id`).
		Scan(&sellerID))

	var productA, productB int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, price, category_id, seller_id, is_active)
		 VALUES ('keyboard', '', 10.00, $1, $2, TRUE) RETURNING id`, categoryID, sellerID).
		Scan(&productA))
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, price, category_id, seller_id, is_active)
		 VALUES ('mouse pad', '', 5.50, $1, $2, TRUE) RETURNING id`, categoryID, sellerID).
		Scan(&productB))

	var cartID int64
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO carts (user_id, is_active) VALUES ($1, TRUE) RETURNING id`, userID).
		Scan(&cartID))
	_, err := db.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity, is_active) VALUES ($1, $2, 2, TRUE), ($1, $3, 1, TRUE)`,
		cartID, productA, productB)
	require.NoError(t, err)
	return userID
}

func TestCheckout_Integration_ConcurrentCheckoutsYieldOneOrder(t *testing.T) {
	db := openTestDB(t)
	userID := seedCheckoutFixture(t, db)

	conf, err := NewConf(db)
	require.NoError(t, err)

	const attempts = 2
	results := make([]error, attempts)
	ordersOut := make([]*Order, attempts)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			ordersOut[i], results[i] = conf.Checkout(context.Background(), userID)
		}(i)
	}
	start.Done()
	done.Wait()

	var succeeded *Order
	for i := 0; i < attempts; i++ {
		if results[i] == nil {
			require.Nil(t, succeeded, "more than one checkout succeeded")
			succeeded = ordersOut[i]
			continue
		}
		if !errors.Is(results[i], ErrEmptyCart) && !errors.Is(results[i], ErrCheckoutConflict) {
			t.Fatalf("unexpected checkout error: %v", results[i])
		}
	}
	require.NotNil(t, succeeded, "no checkout succeeded")

	assert.True(t, succeeded.TotalPrice.Equal(decimal.RequireFromString("25.50")),
		"total %s", succeeded.TotalPrice)
	assert.Len(t, succeeded.Items, 2)

	var orderCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&orderCount))
	assert.Equal(t, 1, orderCount)

	// Exactly one active cart remains and it is empty.
	var activeCarts, activeItems int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM carts WHERE user_id = $1 AND is_active`, userID).Scan(&activeCarts))
	assert.Equal(t, 1, activeCarts)
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE c.user_id = $1 AND c.is_active AND ci.is_active`,
		userID).Scan(&activeItems))
	assert.Equal(t, 0, activeItems)
}

func TestCheckout_Integration_PricesStayFrozen(t *testing.T) {
	db := openTestDB(t)
	userID := seedCheckoutFixture(t, db)

	conf, err := NewConf(db)
	require.NoError(t, err)

	order, err := conf.Checkout(context.Background(), userID)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE products SET price = 99.00`)
	require.NoError(t, err)

	reread, err := conf.GetByID(context.Background(), userID, order.ID)
	require.NoError(t, err)
	assert.True(t, reread.TotalPrice.Equal(decimal.RequireFromString("25.50")))
	require.Len(t, reread.Items, 2)
	assert.True(t, reread.Items[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, reread.Items[1].Price.Equal(decimal.RequireFromString("5.50")))
}
