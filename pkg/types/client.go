package types

import "fmt"

// Client is a patron. The (FirstName, LastName, Class, House) tuple is unique.
type Client struct {
	ClientID  string `db:"client_id" json:"client_id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Class     string `db:"class" json:"class"`
	House     string `db:"house" json:"house"`
}

// Ref returns the natural key of the client.
func (c Client) Ref() ClientRef {
	return ClientRef{FirstName: c.FirstName, LastName: c.LastName, Class: c.Class, House: c.House}
}

// ClientRef identifies a client by its natural key.
type ClientRef struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Class     string `json:"class" validate:"required"`
	House     string `json:"house" validate:"required"`
}

// String renders the reference the way owing lists display it.
func (r ClientRef) String() string {
	return fmt.Sprintf("%s %s %s %s", r.FirstName, r.LastName, r.Class, r.House)
}

// Loan is the outstanding-loan record for one client and one book.
// Returned is true iff Quantity is zero.
type Loan struct {
	ClientID string `db:"client_id" json:"client_id"`
	BookID   string `db:"book_id" json:"book_id"`
	Quantity int    `db:"quantity" json:"quantity"`
	Returned bool   `db:"returned" json:"returned"`
}

// LoanState is the lifecycle position of a (client, book) pair.
type LoanState string

// Loan states.
const (
	LoanNone     LoanState = "none"
	LoanOwing    LoanState = "owing"
	LoanReturned LoanState = "returned"
)

// State derives the lifecycle state of the loan. A nil loan has never been
// opened.
func (l *Loan) State() LoanState {
	switch {
	case l == nil:
		return LoanNone
	case l.Quantity > 0:
		return LoanOwing
	default:
		return LoanReturned
	}
}

// OwedBook is an outstanding loan joined with its client and book, as the
// client record view shows it.
type OwedBook struct {
	ClientID  string `db:"client_id" json:"client_id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Class     string `db:"class" json:"class"`
	House     string `db:"house" json:"house"`
	BookID    string `db:"book_id" json:"book_id"`
	Title     string `db:"title" json:"title"`
	Category  string `db:"category" json:"category"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Returned  bool   `db:"returned" json:"returned"`
}

// ClientRef returns the natural key of the owing client.
func (o OwedBook) ClientRef() ClientRef {
	return ClientRef{FirstName: o.FirstName, LastName: o.LastName, Class: o.Class, House: o.House}
}
