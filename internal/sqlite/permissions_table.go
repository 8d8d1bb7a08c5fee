package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PermissionsTable stores one level per (user, action).
type PermissionsTable struct {
	q sqlx.ExtContext
}

type permissionRow struct {
	Action string `db:"action"`
	Level  int    `db:"level"`
}

// Get returns the stored levels of a user keyed by action name. Actions
// without a row are absent from the map.
func (pt *PermissionsTable) Get(ctx context.Context, userID string) (map[string]int, error) {
	var rows []permissionRow
	err := sqlx.SelectContext(ctx, pt.q, &rows,
		"SELECT action, level FROM user_permissions WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("fetching permissions: %w", err)
	}
	levels := make(map[string]int, len(rows))
	for _, r := range rows {
		levels[r.Action] = r.Level
	}
	return levels, nil
}

// Set replaces every stored level of a user.
func (pt *PermissionsTable) Set(ctx context.Context, userID string, levels map[string]int) error {
	if _, err := pt.q.ExecContext(ctx, "DELETE FROM user_permissions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clearing permissions: %w", err)
	}
	for action, level := range levels {
		_, err := pt.q.ExecContext(ctx,
			"INSERT INTO user_permissions (user_id, action, level) VALUES (?, ?, ?)",
			userID, action, level)
		if err != nil {
			return fmt.Errorf("storing permission %s: %w", action, err)
		}
	}
	return nil
}
