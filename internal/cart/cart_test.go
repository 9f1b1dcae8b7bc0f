package cart

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conf, err := NewConf(db)
	require.NoError(t, err)
	return conf, mock
}

func TestNewConf_NilDB(t *testing.T) {
	_, err := NewConf(nil)
	assert.Error(t, err)
}

func TestAddItem_InsertsNewLine(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT is_active FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`SELECT id, quantity[\s\S]*FROM cart_items`).
		WithArgs(int64(7), int64(101)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO cart_items`).
		WithArgs(int64(7), int64(101), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity", "is_active"}).
			AddRow(int64(31), int64(7), int64(101), 2, true))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "category_id", "seller_id", "rating", "is_active"}).
			AddRow(int64(101), "keyboard", "", "10.00", int64(3), int64(5), nil, true))

	item, err := conf.AddItem(context.Background(), 1, 101, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(31), item.ID)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.IsActive)
	require.NotNil(t, item.Product)
	assert.True(t, item.Product.Price.Equal(decimal.RequireFromString("10.00")))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT is_active FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`SELECT id, quantity[\s\S]*FROM cart_items`).
		WithArgs(int64(7), int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(int64(31), 2))
	mock.ExpectQuery(`UPDATE cart_items[\s\S]*SET quantity = quantity \+`).
		WithArgs(3, int64(31)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity", "is_active"}).
			AddRow(int64(31), int64(7), int64(101), 5, true))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "category_id", "seller_id", "rating", "is_active"}).
			AddRow(int64(101), "keyboard", "", "10.00", int64(3), int64(5), nil, true))

	item, err := conf.AddItem(context.Background(), 1, 101, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_InactiveProduct(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT is_active FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))
	mock.ExpectRollback()

	_, err := conf.AddItem(context.Background(), 1, 101, 2)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	conf, _ := newMock(t)

	_, err := conf.AddItem(context.Background(), 1, 101, 0)
	assert.Error(t, err)
}

func TestUpdateItemQuantity_RejectsNegativeResult(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id, quantity[\s\S]*FROM cart_items`).
		WithArgs(int64(7), int64(31)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(int64(31), 1))
	mock.ExpectRollback()

	_, err := conf.UpdateItemQuantity(context.Background(), 1, 31, -2)
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemQuantity_AllowsZero(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id, quantity[\s\S]*FROM cart_items`).
		WithArgs(int64(7), int64(31)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(int64(31), 2))
	mock.ExpectQuery(`UPDATE cart_items[\s\S]*SET quantity =`).
		WithArgs(0, int64(31)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity", "is_active"}).
			AddRow(int64(31), int64(7), int64(101), 0, true))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "category_id", "seller_id", "rating", "is_active"}).
			AddRow(int64(101), "keyboard", "", "10.00", int64(3), int64(5), nil, true))

	item, err := conf.UpdateItemQuantity(context.Background(), 1, 31, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemQuantity_ItemNotFound(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT id, quantity[\s\S]*FROM cart_items`).
		WithArgs(int64(7), int64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := conf.UpdateItemQuantity(context.Background(), 1, 99, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveItem_SoftDeletes(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`UPDATE cart_items[\s\S]*SET is_active = FALSE`).
		WithArgs(int64(7), int64(31)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "product_id", "quantity", "is_active"}).
			AddRow(int64(31), int64(7), int64(101), 2, false))
	mock.ExpectCommit()

	item, err := conf.RemoveItem(context.Background(), 1, 31)
	require.NoError(t, err)
	assert.False(t, item.IsActive)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveItem_NotFound(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`UPDATE cart_items[\s\S]*SET is_active = FALSE`).
		WithArgs(int64(7), int64(31)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := conf.RemoveItem(context.Background(), 1, 31)
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClear_NoActiveItems(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`UPDATE cart_items SET is_active = FALSE`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := conf.Clear(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoActiveItems)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClear_DeactivatesAll(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`UPDATE cart_items SET is_active = FALSE`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, conf.Clear(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummary_LiveTotals(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectQuery(`SELECT id FROM carts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT COALESCE`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total_items", "total_price"}).AddRow(3, "25.50"))

	s, err := conf.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalItems)
	assert.True(t, s.TotalPrice.Equal(decimal.RequireFromString("25.50")))
	assert.Equal(t, Currency, s.Currency)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummary_CartNotFound(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectQuery(`SELECT id FROM carts`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := conf.Summary(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetOrCreateCart_CreatesLazily(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, user_id, is_active FROM carts`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO carts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_active"}).AddRow(int64(7), int64(1), true))
	mock.ExpectQuery(`FROM cart_items ci`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "cart_id", "product_id", "quantity", "is_active",
			"p_id", "name", "description", "price", "category_id", "seller_id", "rating", "p_active",
		}))

	cart, err := conf.GetOrCreateCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cart.ID)
	assert.True(t, cart.IsActive)
	assert.Empty(t, cart.Items)

	assert.NoError(t, mock.ExpectationsWereMet())
}
