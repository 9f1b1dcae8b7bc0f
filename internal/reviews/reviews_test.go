package reviews

import (
	"context"
	"testing"
	"time"

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

func TestCreateReview_RefreshesRating(t *testing.T) {
	conf, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT is_active FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(1), int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO reviews`).
		WithArgs(int64(1), int64(101), "solid build", 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "comment", "comment_date", "grade", "is_active"}).
			AddRow(int64(61), int64(1), int64(101), "solid build", now, 4, true))
	mock.ExpectExec(`UPDATE products[\s\S]*SET rating =`).
		WithArgs(int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	review, err := conf.CreateReview(context.Background(), NewReview{
		ProductID: 101,
		Comment:   "solid build",
		Grade:     4,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(61), review.ID)
	assert.Equal(t, 4, review.Grade)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_RejectsSecondReview(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT is_active FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(1), int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := conf.CreateReview(context.Background(), NewReview{ProductID: 101, Grade: 4}, 1)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_InactiveProduct(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT is_active FROM products`).
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))
	mock.ExpectRollback()

	_, err := conf.CreateReview(context.Background(), NewReview{ProductID: 101, Grade: 4}, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteReview_RefreshesRating(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE reviews SET is_active = FALSE`).
		WithArgs(int64(61)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(int64(101)))
	mock.ExpectExec(`UPDATE products[\s\S]*SET rating =`).
		WithArgs(int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, conf.DeleteReview(context.Background(), 61))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReview_NotFound(t *testing.T) {
	conf, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE reviews SET is_active = FALSE`).
		WithArgs(int64(61)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))
	mock.ExpectRollback()

	err := conf.DeleteReview(context.Background(), 61)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}
