package sqlite

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// TransactionsTable accesses the append-only transactions log.
type TransactionsTable struct {
	q sqlx.ExtContext
}

// Totals are LEND and RETRIEVE sums over the whole log and over one day.
type Totals struct {
	TotalLent      int `db:"total_lent"`
	TotalRetrieved int `db:"total_retrieved"`
	LentToday      int `db:"lent_today"`
	RetrievedToday int `db:"retrieved_today"`
}

// DayTotal is the LEND and RETRIEVE sum for one calendar day.
type DayTotal struct {
	Day       string `db:"day"`
	Lent      int    `db:"lent"`
	Retrieved int    `db:"retrieved"`
}

// TxFilter narrows List. Zero values match everything.
type TxFilter struct {
	UserName string
	Type     types.TxType
	Day      string
	ClientID string
	BookID   string
	Limit    uint
}

// Append writes one transaction. An empty TransactionID is replaced by a
// generated one.
func (tt *TransactionsTable) Append(ctx context.Context, t *types.Transaction) error {
	if t.TransactionID == "" {
		t.TransactionID = generateUUID()
	}
	_, err := tt.q.ExecContext(ctx, `INSERT INTO transactions
(transaction_id, client_id, book_id, quantity, type, user_id, occurred_at, day)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TransactionID, t.ClientID, t.BookID, t.Quantity, string(t.Type), t.UserID,
		formatTime(t.OccurredAt), t.Day)
	if err != nil {
		return fmt.Errorf("appending transaction: %w", err)
	}
	return nil
}

// PairBalance returns LEND minus RETRIEVE quantity logged for a
// (client, book) pair.
func (tt *TransactionsTable) PairBalance(ctx context.Context, clientID, bookID string) (int, error) {
	var balance int
	err := tt.q.QueryRowxContext(ctx, `SELECT
COALESCE(SUM(CASE WHEN type = 'LEND' THEN quantity ELSE -quantity END), 0)
FROM transactions WHERE client_id = ? AND book_id = ?`, clientID, bookID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("summing transactions: %w", err)
	}
	return balance, nil
}

// Totals sums the log overall and for the given day.
func (tt *TransactionsTable) Totals(ctx context.Context, day string) (Totals, error) {
	var t Totals
	err := sqlx.GetContext(ctx, tt.q, &t, `SELECT
COALESCE(SUM(CASE WHEN type = 'LEND' THEN quantity END), 0) AS total_lent,
COALESCE(SUM(CASE WHEN type = 'RETRIEVE' THEN quantity END), 0) AS total_retrieved,
COALESCE(SUM(CASE WHEN type = 'LEND' AND day = ? THEN quantity END), 0) AS lent_today,
COALESCE(SUM(CASE WHEN type = 'RETRIEVE' AND day = ? THEN quantity END), 0) AS retrieved_today
FROM transactions`, day, day)
	if err != nil {
		return Totals{}, fmt.Errorf("summing transactions: %w", err)
	}
	return t, nil
}

// DailyTotals returns one row per day in [fromDay, toDay] that has at least
// one transaction, ordered by day.
func (tt *TransactionsTable) DailyTotals(ctx context.Context, fromDay, toDay string) ([]DayTotal, error) {
	ds := builder.From(types.TableTxns).
		Select(
			goqu.C("day"),
			goqu.L("COALESCE(SUM(CASE WHEN type = 'LEND' THEN quantity END), 0)").As("lent"),
			goqu.L("COALESCE(SUM(CASE WHEN type = 'RETRIEVE' THEN quantity END), 0)").As("retrieved"),
		).
		Where(goqu.C("day").Between(goqu.Range(fromDay, toDay))).
		GroupBy(goqu.C("day")).
		Order(goqu.C("day").Asc())

	totals := []DayTotal{}
	if err := selectInto(ctx, tt.q, &totals, ds); err != nil {
		return nil, fmt.Errorf("grouping transactions by day: %w", err)
	}
	return totals, nil
}

type txViewRow struct {
	TransactionID string `db:"transaction_id"`
	User          string `db:"user"`
	Title         string `db:"title"`
	Category      string `db:"category"`
	Type          string `db:"type"`
	Quantity      int    `db:"quantity"`
	FirstName     string `db:"first_name"`
	LastName      string `db:"last_name"`
	OccurredAt    string `db:"occurred_at"`
}

// List returns transactions joined with user, book, and client names,
// newest first. Rows whose book or user was deleted keep empty names.
func (tt *TransactionsTable) List(ctx context.Context, filter TxFilter) ([]types.TransactionView, error) {
	ds := builder.From(goqu.T(types.TableTxns).As("t")).
		LeftJoin(goqu.T(types.TableUsers).As("u"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("t.user_id")))).
		LeftJoin(goqu.T(types.TableBooks).As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("t.book_id")))).
		LeftJoin(goqu.T(types.TableClients).As("c"), goqu.On(goqu.I("c.client_id").Eq(goqu.I("t.client_id")))).
		Select(
			goqu.I("t.transaction_id").As("transaction_id"),
			goqu.COALESCE(goqu.I("u.user_name"), "").As("user"),
			goqu.COALESCE(goqu.I("b.title"), "").As("title"),
			goqu.COALESCE(goqu.I("b.category"), "").As("category"),
			goqu.I("t.type").As("type"),
			goqu.I("t.quantity").As("quantity"),
			goqu.COALESCE(goqu.I("c.first_name"), "").As("first_name"),
			goqu.COALESCE(goqu.I("c.last_name"), "").As("last_name"),
			goqu.I("t.occurred_at").As("occurred_at"),
		).
		Order(goqu.I("t.occurred_at").Desc(), goqu.I("t.transaction_id").Desc())

	if filter.UserName != "" {
		ds = ds.Where(goqu.I("u.user_name").Eq(filter.UserName))
	}
	if filter.Type != "" {
		ds = ds.Where(goqu.I("t.type").Eq(string(filter.Type)))
	}
	if filter.Day != "" {
		ds = ds.Where(goqu.I("t.day").Eq(filter.Day))
	}
	if filter.ClientID != "" {
		ds = ds.Where(goqu.I("t.client_id").Eq(filter.ClientID))
	}
	if filter.BookID != "" {
		ds = ds.Where(goqu.I("t.book_id").Eq(filter.BookID))
	}
	if filter.Limit > 0 {
		ds = ds.Limit(filter.Limit)
	}

	var rows []txViewRow
	if err := selectInto(ctx, tt.q, &rows, ds); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	views := make([]types.TransactionView, 0, len(rows))
	for _, r := range rows {
		at, err := parseTime(r.OccurredAt)
		if err != nil {
			return nil, err
		}
		v := types.TransactionView{
			TransactionID: r.TransactionID,
			User:          r.User,
			Type:          types.TxType(r.Type),
			Quantity:      r.Quantity,
			OccurredAt:    at,
		}
		if r.Title != "" {
			v.Book = r.Title + ", " + r.Category
		}
		if r.FirstName != "" {
			v.Client = r.FirstName + " " + r.LastName
		}
		views = append(views, v)
	}
	return views, nil
}
