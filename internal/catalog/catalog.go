// Package catalog manages books and categories: adding, searching, editing,
// and deleting (title, category) rows and their available quantity.
package catalog

import (
	"context"
	"errors"
	"fmt"

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

// Service is the catalog.
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

// NewService creates the catalog over storage. auth gates every mutation.
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

// AddBookRequest describes a new (title, category) row. An empty Category
// means the default category. CreateCategory confirms creating a category
// that does not exist yet.
type AddBookRequest struct {
	Title          string `validate:"required"`
	Category       string `validate:"required"`
	Quantity       int    `validate:"gte=0"`
	CreateCategory bool
}

func (r *AddBookRequest) normalize() {
	r.Title = normalize.Title(r.Title)
	r.Category = normalize.Title(r.Category)
	if r.Category == "" {
		r.Category = types.DefaultCategory
	}
}

// AddBook inserts a book. A missing category fails with ErrCategoryNotFound
// unless CreateCategory is set; an existing (title, category) pair fails with
// ErrAlreadyExists.
func (s *Service) AddBook(ctx context.Context, actor types.Actor, req AddBookRequest) (*types.Book, error) {
	if err := s.auth.Require(ctx, actor, access.AddBookTab); err != nil {
		return nil, err
	}
	req.normalize()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	createCategory, err := s.needsCategory(ctx, actor, req.Category, req.CreateCategory)
	if err != nil {
		return nil, err
	}

	book := &types.Book{Title: req.Title, Category: req.Category, Quantity: req.Quantity}
	err = s.storage.InTx(ctx, func(st *sqlite.Store) error {
		if createCategory {
			if err := st.Categories.Insert(ctx, req.Category); err != nil {
				return err
			}
		}
		_, err := st.Books.Insert(ctx, book)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book added", "title", book.Title, "category", book.Category, "quantity", book.Quantity)
	if createCategory {
		s.recorder.Record(ctx, actor, history.Added(req.Category), types.TableCategories)
	}
	s.recorder.Record(ctx, actor, history.BookAdded(*book), types.TableBooks)
	return book, nil
}

// needsCategory reports whether category must be created first. The actor
// must confirm with create and hold add_category.
func (s *Service) needsCategory(ctx context.Context, actor types.Actor, category string, create bool) (bool, error) {
	st, err := s.storage.Store()
	if err != nil {
		return false, err
	}
	_, err = st.Categories.Lookup(ctx, category)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, types.ErrCategoryNotFound) || !create {
		return false, err
	}
	if err := s.auth.Require(ctx, actor, access.AddCategory); err != nil {
		return false, err
	}
	return true, nil
}

// SearchBook looks a title up. With a category, a row in that category is
// Found; otherwise the rows under other categories are returned as
// FoundUnderOtherCategory. Without a category, a single row is Found and
// several are FoundUnderOtherCategory so the operator can pick one.
func (s *Service) SearchBook(ctx context.Context, title, category string) (types.SearchResult, error) {
	title = normalize.Title(title)
	category = normalize.Title(category)
	if title == "" {
		return types.SearchResult{}, types.InvalidInputf("title is required")
	}
	st, err := s.storage.Store()
	if err != nil {
		return types.SearchResult{}, err
	}
	return searchBook(ctx, st, title, category)
}

func searchBook(ctx context.Context, st *sqlite.Store, title, category string) (types.SearchResult, error) {
	if category != "" {
		b, err := st.Books.Find(ctx, title, category)
		if err == nil {
			return types.SearchResult{Outcome: types.Found, Book: b}, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return types.SearchResult{}, err
		}
	}

	matches, err := st.Books.ByTitle(ctx, title)
	if err != nil {
		return types.SearchResult{}, err
	}
	switch {
	case len(matches) == 0:
		return types.SearchResult{Outcome: types.NotFound}, nil
	case category == "" && len(matches) == 1:
		return types.SearchResult{Outcome: types.Found, Book: &matches[0]}, nil
	default:
		return types.SearchResult{Outcome: types.FoundUnderOtherCategory, Matches: matches}, nil
	}
}

// EditBookRequest replaces the title, category, and quantity of a book.
type EditBookRequest struct {
	BookID         string `validate:"required"`
	Title          string `validate:"required"`
	Category       string `validate:"required"`
	Quantity       int    `validate:"gte=0"`
	CreateCategory bool
}

// EditBook updates a book. Unchanged values fail with ErrNoChange; moving to
// a (title, category) pair held by another book fails with ErrAlreadyExists.
func (s *Service) EditBook(ctx context.Context, actor types.Actor, req EditBookRequest) (*types.Book, error) {
	if err := s.auth.Require(ctx, actor, access.EditBook); err != nil {
		return nil, err
	}
	req.Title = normalize.Title(req.Title)
	req.Category = normalize.Title(req.Category)
	if req.Category == "" {
		req.Category = types.DefaultCategory
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	current, err := st.Books.Get(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	updated := types.Book{BookID: current.BookID, Title: req.Title, Category: req.Category, Quantity: req.Quantity}
	if updated == *current {
		return nil, fmt.Errorf("book %q in %q: %w", current.Title, current.Category, types.ErrNoChange)
	}

	createCategory, err := s.needsCategory(ctx, actor, req.Category, req.CreateCategory)
	if err != nil {
		return nil, err
	}

	err = s.storage.InTx(ctx, func(st *sqlite.Store) error {
		if createCategory {
			if err := st.Categories.Insert(ctx, req.Category); err != nil {
				return err
			}
		}
		if updated.Title != current.Title || updated.Category != current.Category {
			res, err := searchBook(ctx, st, updated.Title, updated.Category)
			if err != nil {
				return err
			}
			if res.Outcome == types.Found && res.Book.BookID != current.BookID {
				return fmt.Errorf("book %q in %q: %w", updated.Title, updated.Category, types.ErrAlreadyExists)
			}
		}
		return st.Books.Update(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book edited", "book_id", updated.BookID)
	if createCategory {
		s.recorder.Record(ctx, actor, history.Added(req.Category), types.TableCategories)
	}
	s.recorder.Record(ctx, actor, history.BookEdited(*current, updated), types.TableBooks)
	return &updated, nil
}

// DeleteBook removes the (title, category) row. A title missing from the
// category fails with a NotInCategoryError; a book some client still owes
// fails with an OutstandingLoansError.
func (s *Service) DeleteBook(ctx context.Context, actor types.Actor, title, category string) error {
	if err := s.auth.Require(ctx, actor, access.DeleteBook); err != nil {
		return err
	}
	title = normalize.Title(title)
	category = normalize.Title(category)
	if title == "" || category == "" {
		return types.InvalidInputf("title and category are required")
	}

	var deleted types.Book
	err := s.storage.InTx(ctx, func(st *sqlite.Store) error {
		res, err := searchBook(ctx, st, title, category)
		if err != nil {
			return err
		}
		if res.Outcome != types.Found {
			return &types.NotInCategoryError{Title: title, Category: category, Categories: res.Categories()}
		}
		deleted = *res.Book

		owing, err := st.Loans.OwingClients(ctx, sqlite.OwedFilter{BookID: deleted.BookID})
		if err != nil {
			return err
		}
		if len(owing) > 0 {
			names := make([]string, len(owing))
			for i, ref := range owing {
				names[i] = ref.String()
			}
			return &types.OutstandingLoansError{
				Subject: fmt.Sprintf("'%s, %s'", deleted.Title, deleted.Category),
				Owing:   names,
			}
		}
		return st.Books.Delete(ctx, deleted.BookID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("book deleted", "title", deleted.Title, "category", deleted.Category)
	s.recorder.Record(ctx, actor, history.BookDeleted(deleted), types.TableBooks)
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, types.Actor, string, string) {}
