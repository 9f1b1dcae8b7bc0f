package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"store-backend/internal/auth"
	"store-backend/internal/cart"
	"store-backend/internal/categories"
	"store-backend/internal/orders"
	"store-backend/internal/products"
	"store-backend/internal/reviews"
	"store-backend/internal/users"
	"store-backend/internal/wishlist"
)

func testRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *auth.Keys) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	keys := testKeys(t)
	confs := Confs{
		Cart:       mustConf(t, cart.NewConf, db),
		Orders:     mustConf(t, orders.NewConf, db),
		Products:   mustConf(t, products.NewConf, db),
		Categories: mustConf(t, categories.NewConf, db),
		Reviews:    mustConf(t, reviews.NewConf, db),
		Wishlist:   mustConf(t, wishlist.NewConf, db),
		Users:      mustConf(t, users.NewConf, db),
	}
	return API("/v1", keys, confs, nil), mock, keys
}

func mustConf[T any](t *testing.T, newConf func(*sql.DB) (T, error), db *sql.DB) T {
	t.Helper()
	conf, err := newConf(db)
	require.NoError(t, err)
	return conf
}

func testKeys(t *testing.T) *auth.Keys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	keys, err := auth.NewKeys(privatePEM, publicPEM)
	require.NoError(t, err)
	return keys
}

func bearerToken(t *testing.T, keys *auth.Keys, userID int64, role string) string {
	t.Helper()
	token, err := keys.GenerateToken(userID, "buyer@test.local", role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestPing(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartItems_RequiresToken(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/cart/items", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartItems_ReturnsActiveCart(t *testing.T) {
	router, mock, keys := testRouter(t)

	mock.ExpectQuery(`SELECT id, user_id, is_active FROM carts`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_active"}).AddRow(int64(7), int64(42), true))
	mock.ExpectQuery(`FROM cart_items ci`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "cart_id", "product_id", "quantity", "is_active",
			"p_id", "name", "description", "price", "category_id", "seller_id", "rating", "p_active",
		}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/cart/items", nil)
	req.Header.Set("Authorization", bearerToken(t, keys, 42, auth.RoleBuyer))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_EmptyCartAnswersBadRequest(t *testing.T) {
	router, mock, keys := testRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id[\s\S]*FROM carts[\s\S]*FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/checkout", nil)
	req.Header.Set("Authorization", bearerToken(t, keys, 42, auth.RoleBuyer))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategory_RequiresAdmin(t *testing.T) {
	router, _, keys := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/categories/create", nil)
	req.Header.Set("Authorization", bearerToken(t, keys, 42, auth.RoleBuyer))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetOrder_BadID(t *testing.T) {
	router, _, keys := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/orders/view/abc", nil)
	req.Header.Set("Authorization", bearerToken(t, keys, 42, auth.RoleBuyer))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
