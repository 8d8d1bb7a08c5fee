package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const userColumns = "user_id, user_name, name, password_hash"

// UsersTable accesses operator accounts.
type UsersTable struct {
	q   sqlx.ExtContext
	now func() time.Time
}

// Get retrieves a user by ID.
func (ut *UsersTable) Get(ctx context.Context, id string) (*types.User, error) {
	var u types.User
	if err := sqlx.GetContext(ctx, ut.q, &u, "SELECT "+userColumns+" FROM users WHERE user_id = ?", id); err != nil {
		return nil, notFound(err, "user "+id)
	}
	return &u, nil
}

// GetByName retrieves a user by user name.
func (ut *UsersTable) GetByName(ctx context.Context, userName string) (*types.User, error) {
	var u types.User
	if err := sqlx.GetContext(ctx, ut.q, &u, "SELECT "+userColumns+" FROM users WHERE user_name = ?", userName); err != nil {
		return nil, notFound(err, "user "+userName)
	}
	return &u, nil
}

// Insert creates a user. Returns ErrAlreadyExists if the user name is taken.
func (ut *UsersTable) Insert(ctx context.Context, u *types.User) (string, error) {
	if u.UserID == "" {
		u.UserID = generateUUID()
	}
	if err := ut.checkUniqueName(ctx, u.UserName, u.UserID); err != nil {
		return "", err
	}
	_, err := ut.q.ExecContext(ctx,
		"INSERT INTO users (user_id, user_name, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		u.UserID, u.UserName, u.Name, u.PasswordHash, formatTime(ut.now()))
	if err != nil {
		return "", fmt.Errorf("inserting user: %w", err)
	}
	return u.UserID, nil
}

// Rename changes a user's user name.
func (ut *UsersTable) Rename(ctx context.Context, id, userName string) error {
	if err := ut.checkUniqueName(ctx, userName, id); err != nil {
		return err
	}
	res, err := ut.q.ExecContext(ctx, "UPDATE users SET user_name = ? WHERE user_id = ?", userName, id)
	if err != nil {
		return fmt.Errorf("renaming user: %w", err)
	}
	return requireAffected(res, "user "+id)
}

// SetPasswordHash replaces a user's password hash.
func (ut *UsersTable) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := ut.q.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE user_id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireAffected(res, "user "+id)
}

// Delete removes a user; its permission row goes with it.
func (ut *UsersTable) Delete(ctx context.Context, id string) error {
	res, err := ut.q.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireAffected(res, "user "+id)
}

// List returns every user ordered by user name.
func (ut *UsersTable) List(ctx context.Context) ([]types.User, error) {
	users := []types.User{}
	if err := sqlx.SelectContext(ctx, ut.q, &users, "SELECT "+userColumns+" FROM users ORDER BY user_name"); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Count returns the number of users.
func (ut *UsersTable) Count(ctx context.Context) (int, error) {
	var n int
	if err := ut.q.QueryRowxContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (ut *UsersTable) checkUniqueName(ctx context.Context, userName, id string) error {
	var dupID string
	err := ut.q.QueryRowxContext(ctx,
		"SELECT user_id FROM users WHERE user_name = ? AND user_id != ?", userName, id).Scan(&dupID)
	if err == nil {
		return fmt.Errorf("user %q: %w", userName, types.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking user name uniqueness: %w", err)
	}
	return nil
}
