package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/jmoiron/sqlx"
)

const dialectSQLite = "sqlite3"

// builder produces prepared statements in the SQLite dialect.
var builder = goqu.Dialect(dialectSQLite)

// selectInto runs a goqu select and scans every row into dest, a pointer to
// a slice of structs with db tags.
func selectInto(ctx context.Context, q sqlx.QueryerContext, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}
