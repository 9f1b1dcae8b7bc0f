package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrParentNotFound   = errors.New("parent category not found")
	ErrSelfParent       = errors.New("category cannot be its own parent")
)

// Category is a node of the (flat-ish) catalog tree. Deletion is logical.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
	IsActive bool   `json:"is_active"`
}

type NewCategory struct {
	Name     string `json:"name" validate:"required,min=2"`
	ParentID *int64 `json:"parent_id"`
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

// CreateCategory inserts a category; a parent, when given, must exist.
func (c *Conf) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	if nc.ParentID != nil && *nc.ParentID > 0 {
		if err := c.checkParent(ctx, *nc.ParentID); err != nil {
			return Category{}, err
		}
	}

	query := `
		INSERT INTO categories (name, parent_id, is_active)
		VALUES ($1, $2, TRUE)
		RETURNING id, name, parent_id, is_active
	`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, nc.Name, nc.ParentID).
		Scan(&cat.ID, &cat.Name, &cat.ParentID, &cat.IsActive)
	if err != nil {
		return Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	return cat, nil
}

// ListCategories returns all active categories.
func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, parent_id, is_active FROM categories WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.ParentID, &cat.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return out, nil
}

// UpdateCategory renames or re-parents a category.
func (c *Conf) UpdateCategory(ctx context.Context, categoryID int64, nc NewCategory) (Category, error) {
	if nc.ParentID != nil {
		if *nc.ParentID == categoryID {
			return Category{}, ErrSelfParent
		}
		if err := c.checkParent(ctx, *nc.ParentID); err != nil {
			return Category{}, err
		}
	}

	query := `
		UPDATE categories
		SET name = $1, parent_id = $2
		WHERE id = $3
		RETURNING id, name, parent_id, is_active
	`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, nc.Name, nc.ParentID, categoryID).
		Scan(&cat.ID, &cat.Name, &cat.ParentID, &cat.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, fmt.Errorf("failed to update category: %w", err)
	}
	return cat, nil
}

// DeleteCategory soft deletes a category.
func (c *Conf) DeleteCategory(ctx context.Context, categoryID int64) (Category, error) {
	query := `
		UPDATE categories
		SET is_active = FALSE
		WHERE id = $1
		RETURNING id, name, parent_id, is_active
	`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, categoryID).
		Scan(&cat.ID, &cat.Name, &cat.ParentID, &cat.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, fmt.Errorf("failed to delete category: %w", err)
	}
	return cat, nil
}

func (c *Conf) checkParent(ctx context.Context, parentID int64) error {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, parentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check parent category: %w", err)
	}
	if !exists {
		return ErrParentNotFound
	}
	return nil
}
