package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// seedLookups fills the categories, classes, and houses tables when they are
// empty (first run). Classes and houses come from the config and are stored
// upper-cased.
func seedLookups(db *sqlx.DB, config types.Config) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	seeds := []struct {
		table string
		names []string
	}{
		{types.TableCategories, []string{types.DefaultCategory}},
		{types.TableClasses, upperAll(config.Classes)},
		{types.TableHouses, upperAll(config.Houses)},
	}
	for _, s := range seeds {
		var count int
		if err := tx.QueryRowx(fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count); err != nil {
			return fmt.Errorf("counting %s: %w", s.table, err)
		}
		if count > 0 {
			continue
		}
		for _, name := range s.names {
			if _, err := tx.Exec(fmt.Sprintf("INSERT OR IGNORE INTO %s (name) VALUES (?)", s.table), name); err != nil {
				return fmt.Errorf("seeding %s %q: %w", s.table, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}
	return nil
}

func upperAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
