// Package ledger lends books to clients and retrieves them.
//
// Each operation moves stock between a book row and a client's outstanding
// loan record and appends one transaction, all in a single database
// transaction. The dashboard counters are applied after commit.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/directory"
	"github.com/mesh-intelligence/librarian/internal/history"
	"github.com/mesh-intelligence/librarian/internal/logging"
	"github.com/mesh-intelligence/librarian/internal/normalize"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/internal/validation"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Storage opens table accessors and transactions.
type Storage interface {
	Store() (*sqlite.Store, error)
	InTx(ctx context.Context, fn func(*sqlite.Store) error) error
}

// Recorder receives audit entries after a change commits.
type Recorder interface {
	Record(ctx context.Context, actor types.Actor, action, table string)
}

// Service is the lending engine.
type Service struct {
	storage  Storage
	auth     access.Authorizer
	recorder Recorder
	logger   logging.Logger
	now      func() time.Time

	mu     sync.Mutex
	dash   Dashboard
	loaded bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the audit recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock sets the time source. Transactions are stamped with its value
// and filed under its calendar day.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the ledger over storage.
func NewService(storage Storage, auth access.Authorizer, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		auth:     auth,
		recorder: nopRecorder{},
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LendRequest asks for Quantity copies of (Title, Category) for Client.
// With TakeAll, a request larger than the stock lends whatever is available
// instead of failing.
type LendRequest struct {
	Client   types.ClientRef
	Title    string `validate:"required"`
	Category string `validate:"required"`
	Quantity int    `validate:"gte=1"`
	TakeAll  bool
}

// RetrieveRequest hands Quantity copies of (Title, Category) back from
// Client.
type RetrieveRequest struct {
	Client   types.ClientRef
	Title    string `validate:"required"`
	Category string `validate:"required"`
	Quantity int    `validate:"gte=1"`
}

// Receipt describes a committed lend or retrieve.
type Receipt struct {
	Transaction types.Transaction `json:"transaction"`
	Book        types.Book        `json:"book"`
	Client      types.Client      `json:"client"`
	Loan        types.Loan        `json:"loan"`
}

// Lend moves copies from the shelf to the client. A missing book fails with
// ErrNotFound. An empty shelf fails with ErrOutOfStock and a short one with
// a StockError carrying the available amount, unless TakeAll is set. An
// unknown client tuple is added to the directory.
func (s *Service) Lend(ctx context.Context, actor types.Actor, req LendRequest) (*Receipt, error) {
	if err := s.auth.Require(ctx, actor, access.LendBookTab); err != nil {
		return nil, err
	}
	req.Client = directory.NormalizeRef(req.Client)
	req.Title = normalize.Title(req.Title)
	req.Category = normalize.Title(req.Category)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	at := s.now()
	var receipt Receipt
	var created bool
	err := s.storage.InTx(ctx, func(st *sqlite.Store) error {
		book, err := st.Books.Find(ctx, req.Title, req.Category)
		if err != nil {
			return err
		}
		qty := req.Quantity
		if book.Quantity < qty {
			if book.Quantity == 0 || !req.TakeAll {
				return &types.StockError{Title: book.Title, Category: book.Category, Requested: qty, Available: book.Quantity}
			}
			qty = book.Quantity
		}

		client, isNew, err := directory.Resolve(ctx, st, req.Client)
		if err != nil {
			return err
		}
		created = isNew

		if err := st.Books.AdjustQuantity(ctx, book.BookID, -qty); err != nil {
			return err
		}
		if err := st.Loans.Open(ctx, client.ClientID, book.BookID, qty); err != nil {
			return err
		}
		return s.finish(ctx, st, &receipt, types.TxLend, actor, client, book, qty, at)
	})
	if err != nil {
		return nil, err
	}

	s.apply(types.TxLend, receipt.Transaction.Quantity, at)
	s.logger.Info("lent",
		"title", receipt.Book.Title, "category", receipt.Book.Category,
		"client", receipt.Client.Ref().String(), "quantity", receipt.Transaction.Quantity)
	if created {
		s.recorder.Record(ctx, actor, history.ClientAdded(receipt.Client), types.TableClients)
	}
	return &receipt, nil
}

// Retrieve moves copies from the client back to the shelf. An unknown
// client, book, or loan fails with ErrNotFound; returning more than is owed
// fails with ErrInvalidInput.
func (s *Service) Retrieve(ctx context.Context, actor types.Actor, req RetrieveRequest) (*Receipt, error) {
	if err := s.auth.Require(ctx, actor, access.RetrieveBook); err != nil {
		return nil, err
	}
	req.Client = directory.NormalizeRef(req.Client)
	req.Title = normalize.Title(req.Title)
	req.Category = normalize.Title(req.Category)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	at := s.now()
	var receipt Receipt
	err := s.storage.InTx(ctx, func(st *sqlite.Store) error {
		client, err := st.Clients.FindByRef(ctx, req.Client)
		if err != nil {
			return err
		}
		book, err := st.Books.Find(ctx, req.Title, req.Category)
		if err != nil {
			return err
		}
		loan, err := st.Loans.Get(ctx, client.ClientID, book.BookID)
		if err != nil {
			return err
		}
		if req.Quantity > loan.Quantity {
			return types.InvalidInputf("%s owes %d of %q in %q, cannot return %d",
				client.Ref(), loan.Quantity, book.Title, book.Category, req.Quantity)
		}

		if err := st.Loans.Reduce(ctx, client.ClientID, book.BookID, req.Quantity); err != nil {
			return err
		}
		if err := st.Books.AdjustQuantity(ctx, book.BookID, req.Quantity); err != nil {
			return err
		}
		return s.finish(ctx, st, &receipt, types.TxRetrieve, actor, client, book, req.Quantity, at)
	})
	if err != nil {
		return nil, err
	}

	s.apply(types.TxRetrieve, receipt.Transaction.Quantity, at)
	s.logger.Info("retrieved",
		"title", receipt.Book.Title, "category", receipt.Book.Category,
		"client", receipt.Client.Ref().String(), "quantity", receipt.Transaction.Quantity)
	return &receipt, nil
}

// finish appends the transaction and fills the receipt with the rows as
// they stand after the change.
func (s *Service) finish(ctx context.Context, st *sqlite.Store, r *Receipt, typ types.TxType,
	actor types.Actor, client *types.Client, book *types.Book, qty int, at time.Time) error {
	tx := types.Transaction{
		ClientID:   client.ClientID,
		BookID:     book.BookID,
		Quantity:   qty,
		Type:       typ,
		UserID:     actor.UserID,
		OccurredAt: at,
		Day:        at.Format(types.DayLayout),
	}
	if err := st.Transactions.Append(ctx, &tx); err != nil {
		return err
	}
	after, err := st.Books.Get(ctx, book.BookID)
	if err != nil {
		return err
	}
	loan, err := st.Loans.Get(ctx, client.ClientID, book.BookID)
	if err != nil {
		return fmt.Errorf("reading loan after %s: %w", typ, err)
	}
	*r = Receipt{Transaction: tx, Book: *after, Client: *client, Loan: *loan}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, types.Actor, string, string) {}
