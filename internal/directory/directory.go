// Package directory manages clients (the students who borrow books) and the
// class and house lists they belong to.
package directory

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/librarian/internal/access"
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

// Service is the client directory.
type Service struct {
	storage  Storage
	auth     access.Authorizer
	recorder Recorder
	logger   logging.Logger
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

// NewService creates the directory over storage.
func NewService(storage Storage, auth access.Authorizer, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		auth:     auth,
		recorder: nopRecorder{},
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeRef title-cases the names and upper-cases class and house.
func NormalizeRef(ref types.ClientRef) types.ClientRef {
	return types.ClientRef{
		FirstName: normalize.Title(ref.FirstName),
		LastName:  normalize.Title(ref.LastName),
		Class:     normalize.Upper(ref.Class),
		House:     normalize.Upper(ref.House),
	}
}

// Resolve returns the client with the natural key ref, creating it when the
// tuple is new. ref must already be normalized. Every field is required and
// class and house must be listed. It runs on st so callers can include it in
// a wider transaction.
func Resolve(ctx context.Context, st *sqlite.Store, ref types.ClientRef) (*types.Client, bool, error) {
	if err := validation.Struct(ref); err != nil {
		return nil, false, err
	}
	for _, check := range []struct {
		table *sqlite.LookupTable
		name  string
	}{
		{st.Classes, ref.Class},
		{st.Houses, ref.House},
	} {
		ok, err := check.table.Exists(ctx, check.name)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, types.InvalidInputf("unknown %s %q", check.table.ClientColumn(), check.name)
		}
	}

	c, err := st.Clients.FindByRef(ctx, ref)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, false, err
	}
	c = &types.Client{FirstName: ref.FirstName, LastName: ref.LastName, Class: ref.Class, House: ref.House}
	if _, err := st.Clients.Insert(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// AddOrGetClient returns the client named by ref, inserting it when the
// tuple is new. created reports whether a row was inserted.
func (s *Service) AddOrGetClient(ctx context.Context, actor types.Actor, ref types.ClientRef) (client *types.Client, created bool, err error) {
	if err := s.auth.Require(ctx, actor, access.LendBookTab); err != nil {
		return nil, false, err
	}
	ref = NormalizeRef(ref)
	err = s.storage.InTx(ctx, func(st *sqlite.Store) error {
		client, created, err = Resolve(ctx, st, ref)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("client added", "client", ref.String())
		s.recorder.Record(ctx, actor, history.ClientAdded(*client), types.TableClients)
	}
	return client, created, nil
}

// FindClient returns the client with the natural key ref.
func (s *Service) FindClient(ctx context.Context, ref types.ClientRef) (*types.Client, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return st.Clients.FindByRef(ctx, NormalizeRef(ref))
}

// ListClients returns every client.
func (s *Service) ListClients(ctx context.Context) ([]types.Client, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return st.Clients.List(ctx)
}

// OwedBooks returns the unreturned loans of one client.
func (s *Service) OwedBooks(ctx context.Context, ref types.ClientRef) ([]types.OwedBook, error) {
	c, err := s.FindClient(ctx, ref)
	if err != nil {
		return nil, err
	}
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return st.Loans.Outstanding(ctx, sqlite.OwedFilter{ClientID: c.ClientID})
}

// Outstanding returns every unreturned loan matching filter.
func (s *Service) Outstanding(ctx context.Context, filter sqlite.OwedFilter) ([]types.OwedBook, error) {
	filter.Class = normalize.Upper(filter.Class)
	filter.House = normalize.Upper(filter.House)
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return st.Loans.Outstanding(ctx, filter)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, types.Actor, string, string) {}
