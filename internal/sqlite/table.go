package sqlite

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// Store groups the table accessors over one query handle: either the
// database itself or an open transaction.
type Store struct {
	q sqlx.ExtContext

	Books        *BooksTable
	Categories   *CategoriesTable
	Clients      *ClientsTable
	Loans        *LoansTable
	Transactions *TransactionsTable
	History      *HistoryTable
	Users        *UsersTable
	Permissions  *PermissionsTable
	Classes      *LookupTable
	Houses       *LookupTable
}

func newStore(q sqlx.ExtContext, now func() time.Time) *Store {
	return &Store{
		q:            q,
		Books:        &BooksTable{q: q},
		Categories:   &CategoriesTable{q: q},
		Clients:      &ClientsTable{q: q},
		Loans:        &LoansTable{q: q},
		Transactions: &TransactionsTable{q: q},
		History:      &HistoryTable{q: q},
		Users:        &UsersTable{q: q, now: now},
		Permissions:  &PermissionsTable{q: q},
		Classes:      &LookupTable{q: q, table: "classes", column: "class"},
		Houses:       &LookupTable{q: q, table: "houses", column: "house"},
	}
}
