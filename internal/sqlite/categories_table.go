package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// CategoriesTable accesses the categories table. Names compare
// case-insensitively.
type CategoriesTable struct {
	q sqlx.ExtContext
}

// Lookup returns the stored spelling of the category, or ErrCategoryNotFound.
func (ct *CategoriesTable) Lookup(ctx context.Context, name string) (string, error) {
	var stored string
	err := ct.q.QueryRowxContext(ctx, "SELECT name FROM categories WHERE name = ?", name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("category %q: %w", name, types.ErrCategoryNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("looking up category %q: %w", name, err)
	}
	return stored, nil
}

// Insert creates a category. Returns ErrAlreadyExists if the name is taken.
func (ct *CategoriesTable) Insert(ctx context.Context, name string) error {
	if _, err := ct.Lookup(ctx, name); err == nil {
		return fmt.Errorf("category %q: %w", name, types.ErrAlreadyExists)
	} else if !errors.Is(err, types.ErrCategoryNotFound) {
		return err
	}
	if _, err := ct.q.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

// List returns every category ordered by name.
func (ct *CategoriesTable) List(ctx context.Context) ([]types.Category, error) {
	cats := []types.Category{}
	if err := sqlx.SelectContext(ctx, ct.q, &cats, "SELECT name FROM categories ORDER BY name"); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// Search returns categories whose name contains the fragment.
func (ct *CategoriesTable) Search(ctx context.Context, fragment string) ([]types.Category, error) {
	cats := []types.Category{}
	err := sqlx.SelectContext(ctx, ct.q, &cats,
		"SELECT name FROM categories WHERE name LIKE ? ORDER BY name", "%"+fragment+"%")
	if err != nil {
		return nil, fmt.Errorf("searching categories: %w", err)
	}
	return cats, nil
}
