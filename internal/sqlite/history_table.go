package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// HistoryTable accesses the audit log.
type HistoryTable struct {
	q sqlx.ExtContext
}

// HistoryFilter narrows List. Zero values match everything.
type HistoryFilter struct {
	UserName string
	Table    string
	Limit    uint
}

type historyRow struct {
	HistoryID  string         `db:"history_id"`
	UserName   string         `db:"user_name"`
	Action     string         `db:"action"`
	TableName  sql.NullString `db:"table_name"`
	RecordedAt string         `db:"recorded_at"`
}

// Append writes one entry. An empty HistoryID is replaced by a generated one.
func (ht *HistoryTable) Append(ctx context.Context, e *types.HistoryEntry) error {
	if e.HistoryID == "" {
		e.HistoryID = generateUUID()
	}
	table := sql.NullString{String: e.Table, Valid: e.Table != ""}
	_, err := ht.q.ExecContext(ctx,
		"INSERT INTO history (history_id, user_name, action, table_name, recorded_at) VALUES (?, ?, ?, ?, ?)",
		e.HistoryID, e.UserName, e.Action, table, formatTime(e.RecordedAt))
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (ht *HistoryTable) List(ctx context.Context, filter HistoryFilter) ([]types.HistoryEntry, error) {
	ds := builder.From(types.TableHistory).
		Select("history_id", "user_name", "action", "table_name", "recorded_at").
		Order(goqu.C("recorded_at").Desc(), goqu.C("history_id").Desc())
	if filter.UserName != "" {
		ds = ds.Where(goqu.C("user_name").Eq(filter.UserName))
	}
	if filter.Table != "" {
		ds = ds.Where(goqu.C("table_name").Eq(filter.Table))
	}
	if filter.Limit > 0 {
		ds = ds.Limit(filter.Limit)
	}

	var rows []historyRow
	if err := selectInto(ctx, ht.q, &rows, ds); err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	entries := make([]types.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		at, err := parseTime(r.RecordedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.HistoryEntry{
			HistoryID:  r.HistoryID,
			UserName:   r.UserName,
			Action:     r.Action,
			Table:      r.TableName.String,
			RecordedAt: at,
		})
	}
	return entries, nil
}
