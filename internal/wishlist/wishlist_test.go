package wishlist

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
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

// expectWishlist mocks the lookup of an existing wishlist with no items.
func expectWishlist(mock sqlmock.Sqlmock, userID, wishlistID int64) {
	mock.ExpectQuery(`SELECT id, user_id FROM wishlists`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(wishlistID, userID))
	mock.ExpectQuery(`FROM wishlist_items wi`).
		WithArgs(wishlistID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "wishlist_id", "product_id", "is_active",
			"p_id", "name", "description", "price", "category_id", "seller_id", "rating", "p_active",
		}))
}

func TestAddProduct_IsIdempotent(t *testing.T) {
	conf, mock := newMock(t)

	expectWishlist(mock, 1, 9)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT id, wishlist_id, product_id, is_active[\s\S]*FROM wishlist_items`).
		WithArgs(int64(9), int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "wishlist_id", "product_id", "is_active"}).
			AddRow(int64(41), int64(9), int64(101), true))

	item, err := conf.AddProduct(context.Background(), 1, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(41), item.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddProduct_InactiveProduct(t *testing.T) {
	conf, mock := newMock(t)

	expectWishlist(mock, 1, 9)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := conf.AddProduct(context.Background(), 1, 101)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClear_NoActiveItems(t *testing.T) {
	conf, mock := newMock(t)

	expectWishlist(mock, 1, 9)
	mock.ExpectExec(`UPDATE wishlist_items SET is_active = FALSE`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := conf.Clear(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoActiveItems)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateWishlist_CreatesLazily(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, user_id FROM wishlists`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
	mock.ExpectQuery(`INSERT INTO wishlists`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(int64(9), int64(1)))
	mock.ExpectQuery(`FROM wishlist_items wi`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "wishlist_id", "product_id", "is_active",
			"p_id", "name", "description", "price", "category_id", "seller_id", "rating", "p_active",
		}))

	w, err := conf.GetOrCreateWishlist(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), w.ID)
	assert.Empty(t, w.Items)

	assert.NoError(t, mock.ExpectationsWereMet())
}
