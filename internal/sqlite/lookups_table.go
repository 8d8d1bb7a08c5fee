package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// LookupTable accesses a single-column name list: classes or houses.
type LookupTable struct {
	q      sqlx.ExtContext
	table  string
	column string // Column of the clients table holding these names.
}

// Name returns the table name.
func (lt *LookupTable) Name() string { return lt.table }

// ClientColumn returns the clients column that references this list.
func (lt *LookupTable) ClientColumn() string { return lt.column }

// Exists reports whether the name is in the list.
func (lt *LookupTable) Exists(ctx context.Context, name string) (bool, error) {
	var stored string
	err := lt.q.QueryRowxContext(ctx,
		fmt.Sprintf("SELECT name FROM %s WHERE name = ?", lt.table), name).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", lt.table, err)
	}
	return true, nil
}

// Insert adds a name. Returns ErrAlreadyExists if present.
func (lt *LookupTable) Insert(ctx context.Context, name string) error {
	ok, err := lt.Exists(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s %q: %w", lt.column, name, types.ErrAlreadyExists)
	}
	if _, err := lt.q.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", lt.table), name); err != nil {
		return fmt.Errorf("inserting into %s: %w", lt.table, err)
	}
	return nil
}

// Delete removes a name.
func (lt *LookupTable) Delete(ctx context.Context, name string) error {
	res, err := lt.q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE name = ?", lt.table), name)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", lt.table, err)
	}
	return requireAffected(res, fmt.Sprintf("%s %q", lt.column, name))
}

// Rename replaces a name. Returns ErrAlreadyExists if the new name is taken
// by another entry.
func (lt *LookupTable) Rename(ctx context.Context, from, to string) error {
	var stored string
	err := lt.q.QueryRowxContext(ctx,
		fmt.Sprintf("SELECT name FROM %s WHERE name = ? AND name != ?", lt.table), to, from).Scan(&stored)
	if err == nil {
		return fmt.Errorf("%s %q: %w", lt.column, to, types.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking %s: %w", lt.table, err)
	}
	res, err := lt.q.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET name = ? WHERE name = ?", lt.table), to, from)
	if err != nil {
		return fmt.Errorf("renaming in %s: %w", lt.table, err)
	}
	return requireAffected(res, fmt.Sprintf("%s %q", lt.column, from))
}

// List returns every name in order.
func (lt *LookupTable) List(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := sqlx.SelectContext(ctx, lt.q, &names, fmt.Sprintf("SELECT name FROM %s ORDER BY name", lt.table)); err != nil {
		return nil, fmt.Errorf("listing %s: %w", lt.table, err)
	}
	return names, nil
}
