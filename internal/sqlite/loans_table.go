package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// LoansTable accesses client_records, the outstanding-loan record per
// (client, book) pair.
type LoansTable struct {
	q sqlx.ExtContext
}

// OwedFilter narrows Outstanding. Zero values match everything.
type OwedFilter struct {
	ClientID string
	BookID   string
	Class    string
	House    string
}

// Get retrieves the loan record for a (client, book) pair.
func (lt *LoansTable) Get(ctx context.Context, clientID, bookID string) (*types.Loan, error) {
	var l types.Loan
	err := sqlx.GetContext(ctx, lt.q, &l,
		"SELECT client_id, book_id, quantity, returned FROM client_records WHERE client_id = ? AND book_id = ?",
		clientID, bookID)
	if err != nil {
		return nil, notFound(err, "loan record")
	}
	return &l, nil
}

// Open records qty more copies owed by the client. A returned record is
// reopened; a missing one is created.
func (lt *LoansTable) Open(ctx context.Context, clientID, bookID string, qty int) error {
	_, err := lt.q.ExecContext(ctx, `INSERT INTO client_records (client_id, book_id, quantity, returned)
VALUES (?, ?, ?, 0)
ON CONFLICT (client_id, book_id) DO UPDATE SET quantity = quantity + excluded.quantity, returned = 0`,
		clientID, bookID, qty)
	if err != nil {
		return fmt.Errorf("opening loan record: %w", err)
	}
	return nil
}

// Reduce records qty copies handed back. The record is marked returned when
// nothing remains owed. Reducing below zero is refused with ErrInvalidInput.
func (lt *LoansTable) Reduce(ctx context.Context, clientID, bookID string, qty int) error {
	res, err := lt.q.ExecContext(ctx, `UPDATE client_records
SET quantity = quantity - ?, returned = (quantity - ? = 0)
WHERE client_id = ? AND book_id = ? AND quantity >= ?`,
		qty, qty, clientID, bookID, qty)
	if err != nil {
		return fmt.Errorf("reducing loan record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reducing loan record: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := lt.Get(ctx, clientID, bookID); err != nil {
		return err
	}
	return types.InvalidInputf("cannot return %d, more than owed", qty)
}

// Outstanding returns every unreturned loan matching the filter, joined with
// its client and book, ordered by client name then title.
func (lt *LoansTable) Outstanding(ctx context.Context, filter OwedFilter) ([]types.OwedBook, error) {
	ds := builder.From(goqu.T(types.TableLoans).As("r")).
		Join(goqu.T(types.TableClients).As("c"), goqu.On(goqu.I("c.client_id").Eq(goqu.I("r.client_id")))).
		Join(goqu.T(types.TableBooks).As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("r.book_id")))).
		Select(
			goqu.I("r.client_id").As("client_id"),
			goqu.I("c.first_name").As("first_name"),
			goqu.I("c.last_name").As("last_name"),
			goqu.I("c.class").As("class"),
			goqu.I("c.house").As("house"),
			goqu.I("r.book_id").As("book_id"),
			goqu.I("b.title").As("title"),
			goqu.I("b.category").As("category"),
			goqu.I("r.quantity").As("quantity"),
			goqu.I("r.returned").As("returned"),
		).
		Where(goqu.I("r.returned").Eq(0)).
		Order(goqu.I("c.first_name").Asc(), goqu.I("c.last_name").Asc(), goqu.I("b.title").Asc())

	if filter.ClientID != "" {
		ds = ds.Where(goqu.I("r.client_id").Eq(filter.ClientID))
	}
	if filter.BookID != "" {
		ds = ds.Where(goqu.I("r.book_id").Eq(filter.BookID))
	}
	if filter.Class != "" {
		ds = ds.Where(goqu.I("c.class").Eq(filter.Class))
	}
	if filter.House != "" {
		ds = ds.Where(goqu.I("c.house").Eq(filter.House))
	}

	owed := []types.OwedBook{}
	if err := selectInto(ctx, lt.q, &owed, ds); err != nil {
		return nil, fmt.Errorf("listing outstanding loans: %w", err)
	}
	return owed, nil
}

// OwingClients returns the distinct clients holding unreturned loans that
// match the filter, in display order.
func (lt *LoansTable) OwingClients(ctx context.Context, filter OwedFilter) ([]types.ClientRef, error) {
	owed, err := lt.Outstanding(ctx, filter)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var refs []types.ClientRef
	for _, o := range owed {
		if seen[o.ClientID] {
			continue
		}
		seen[o.ClientID] = true
		refs = append(refs, o.ClientRef())
	}
	return refs, nil
}
