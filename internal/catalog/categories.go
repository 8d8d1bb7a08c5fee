package catalog

import (
	"context"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/history"
	"github.com/mesh-intelligence/librarian/internal/normalize"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// AddCategory creates a category.
func (s *Service) AddCategory(ctx context.Context, actor types.Actor, name string) (string, error) {
	if err := s.auth.Require(ctx, actor, access.AddCategory); err != nil {
		return "", err
	}
	name = normalize.Title(name)
	if name == "" {
		return "", types.InvalidInputf("category name is required")
	}
	st, err := s.storage.Store()
	if err != nil {
		return "", err
	}
	if err := st.Categories.Insert(ctx, name); err != nil {
		return "", err
	}
	s.recorder.Record(ctx, actor, history.Added(name), types.TableCategories)
	return name, nil
}

// SearchCategory returns the categories whose name contains fragment.
func (s *Service) SearchCategory(ctx context.Context, fragment string) ([]types.Category, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return st.Categories.Search(ctx, normalize.Title(fragment))
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) ([]types.Category, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return st.Categories.List(ctx)
}

// ListBooks returns the books matching filter.
func (s *Service) ListBooks(ctx context.Context, filter sqlite.BookFilter) ([]types.Book, error) {
	filter.Category = normalize.Title(filter.Category)
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return st.Books.List(ctx, filter)
}

// CategoriesOf returns every category holding the title.
func (s *Service) CategoriesOf(ctx context.Context, title string) ([]string, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	books, err := st.Books.ByTitle(ctx, normalize.Title(title))
	if err != nil {
		return nil, err
	}
	res := types.SearchResult{Matches: books}
	return res.Categories(), nil
}
