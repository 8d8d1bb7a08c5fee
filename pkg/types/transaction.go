package types

import "time"

// TxType is the direction of a ledger transaction.
type TxType string

// Transaction types.
const (
	TxLend     TxType = "LEND"
	TxRetrieve TxType = "RETRIEVE"
)

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	return t == TxLend || t == TxRetrieve
}

// DayLayout formats the calendar day a transaction belongs to.
const DayLayout = "2006-01-02"

// Transaction is an immutable ledger record.
type Transaction struct {
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	ClientID      string    `db:"client_id" json:"client_id"`
	BookID        string    `db:"book_id" json:"book_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Type          TxType    `db:"type" json:"type"`
	UserID        string    `db:"user_id" json:"user_id"`
	OccurredAt    time.Time `db:"-" json:"occurred_at"`
	Day           string    `db:"day" json:"day"` // Local calendar day, DayLayout.
}

// TransactionView is a transaction joined with the names of the user, book,
// and client involved.
type TransactionView struct {
	TransactionID string    `json:"transaction_id"`
	User          string    `json:"user"`
	Book          string    `json:"book"` // "title, category"
	Type          TxType    `json:"type"`
	Quantity      int       `json:"quantity"`
	Client        string    `json:"client"`
	OccurredAt    time.Time `json:"occurred_at"`
}
