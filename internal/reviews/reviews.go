package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"store-backend/internal/pg"
)

var (
	ErrProductNotFound = errors.New("product not found or inactive")
	ErrReviewNotFound  = errors.New("review not found")
	ErrAlreadyReviewed = errors.New("user already reviewed this product")
)

// Review is a soft-deletable product review; one active review per user and
// product. The product's average rating is recomputed on every create and
// delete so listings never show a stale aggregate.
type Review struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProductID   int64     `json:"product_id"`
	Comment     string    `json:"comment"`
	CommentDate time.Time `json:"comment_date"`
	Grade       int       `json:"grade"`
	IsActive    bool      `json:"is_active"`
}

type NewReview struct {
	ProductID int64  `json:"product_id" validate:"required,min=1"`
	Comment   string `json:"comment"`
	Grade     int    `json:"grade" validate:"required,min=1,max=5"`
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// ListReviews returns all active reviews.
func (c *Conf) ListReviews(ctx context.Context) ([]Review, error) {
	query := `
		SELECT id, user_id, product_id, comment, comment_date, grade, is_active
		FROM reviews
		WHERE is_active = TRUE
		ORDER BY id
	`
	return c.queryReviews(ctx, query)
}

// ListByProduct returns the active reviews of an active product.
func (c *Conf) ListByProduct(ctx context.Context, productID int64) ([]Review, error) {
	if err := c.checkActiveProduct(ctx, productID); err != nil {
		return nil, err
	}
	query := `
		SELECT id, user_id, product_id, comment, comment_date, grade, is_active
		FROM reviews
		WHERE product_id = $1 AND is_active = TRUE
		ORDER BY id
	`
	return c.queryReviews(ctx, query, productID)
}

// CreateReview stores a review and refreshes the product's average rating
// in the same transaction. A second active review for the same product by
// the same user is rejected.
func (c *Conf) CreateReview(ctx context.Context, nr NewReview, userID int64) (*Review, error) {
	var review Review
	err := pg.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var productActive bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_active FROM products WHERE id = $1`, nr.ProductID).Scan(&productActive)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to query product: %w", err)
		}
		if !productActive {
			return ErrProductNotFound
		}

		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2 AND is_active = TRUE)`,
			userID, nr.ProductID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check existing review: %w", err)
		}
		if exists {
			return ErrAlreadyReviewed
		}

		queryInsert := `
			INSERT INTO reviews (user_id, product_id, comment, grade, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
			RETURNING id, user_id, product_id, comment, comment_date, grade, is_active
		`
		err = tx.QueryRowContext(ctx, queryInsert, userID, nr.ProductID, nr.Comment, nr.Grade).
			Scan(&review.ID, &review.UserID, &review.ProductID, &review.Comment,
				&review.CommentDate, &review.Grade, &review.IsActive)
		if err != nil {
			return fmt.Errorf("failed to insert review: %w", err)
		}

		return refreshRating(ctx, tx, nr.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// DeleteReview soft deletes a review and refreshes the product rating.
func (c *Conf) DeleteReview(ctx context.Context, reviewID int64) error {
	return pg.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var productID int64
		err := tx.QueryRowContext(ctx,
			`UPDATE reviews SET is_active = FALSE WHERE id = $1 AND is_active = TRUE RETURNING product_id`,
			reviewID).Scan(&productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("failed to delete review: %w", err)
		}
		return refreshRating(ctx, tx, productID)
	})
}

// refreshRating recomputes the two-decimal average grade over the active
// reviews of a product; no active reviews clears the rating.
func refreshRating(ctx context.Context, tx *sql.Tx, productID int64) error {
	query := `
		UPDATE products
		SET rating = (
			SELECT ROUND(AVG(grade)::numeric, 2)
			FROM reviews
			WHERE product_id = $1 AND is_active = TRUE
		)
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, productID); err != nil {
		return fmt.Errorf("failed to refresh product rating: %w", err)
	}
	return nil
}

func (c *Conf) checkActiveProduct(ctx context.Context, productID int64) error {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND is_active = TRUE)`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return nil
}

func (c *Conf) queryReviews(ctx context.Context, query string, args ...any) ([]Review, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var r Review
		err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Comment, &r.CommentDate, &r.Grade, &r.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return out, nil
}
