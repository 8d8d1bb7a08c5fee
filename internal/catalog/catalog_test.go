package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

var admin = types.Actor{UserID: "u-admin", UserName: "admin"}

type fakeRecorder struct{ actions []string }

func (f *fakeRecorder) Record(_ context.Context, _ types.Actor, action, _ string) {
	f.actions = append(f.actions, action)
}

type fixture struct {
	svc     *Service
	backend *sqlite.Backend
	rec     *fakeRecorder
}

func newFixture(t *testing.T, p access.Permissions) *fixture {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir(), Classes: []string{"10C1"}, Houses: []string{"H3WC"}}))
	t.Cleanup(func() { b.Detach() })
	rec := &fakeRecorder{}
	return &fixture{
		svc:     NewService(b, access.Fixed(p), WithRecorder(rec)),
		backend: b,
		rec:     rec,
	}
}

func (f *fixture) addBook(t *testing.T, title, category string, qty int) *types.Book {
	t.Helper()
	b, err := f.svc.AddBook(context.Background(), admin, AddBookRequest{
		Title: title, Category: category, Quantity: qty, CreateCategory: true,
	})
	require.NoError(t, err)
	return b
}

// lendDirect opens a loan through the store, bypassing the ledger.
func (f *fixture) lendDirect(t *testing.T, bookID, first string, qty int) {
	t.Helper()
	ctx := context.Background()
	st, err := f.backend.Store()
	require.NoError(t, err)
	clientID, err := st.Clients.Insert(ctx, &types.Client{FirstName: first, LastName: "Mwansa", Class: "10C1", House: "H3WC"})
	require.NoError(t, err)
	require.NoError(t, st.Loans.Open(ctx, clientID, bookID, qty))
}

func TestAddBook(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		req   AddBookRequest
		setup func(t *testing.T, f *fixture)
		check func(t *testing.T, f *fixture, b *types.Book, err error)
	}{
		{
			name: "normalizes and defaults category",
			req:  AddBookRequest{Title: "  the  hobbit ", Quantity: 4},
			check: func(t *testing.T, f *fixture, b *types.Book, err error) {
				require.NoError(t, err)
				assert.Equal(t, "The Hobbit", b.Title)
				assert.Equal(t, types.DefaultCategory, b.Category)
				assert.NotEmpty(t, b.BookID)
				assert.Equal(t, []string{"ADDED 'The Hobbit, Unknown, 4'"}, f.rec.actions)
			},
		},
		{
			name: "empty title is invalid",
			req:  AddBookRequest{Title: "   ", Quantity: 1},
			check: func(t *testing.T, f *fixture, b *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
			},
		},
		{
			name: "negative quantity is invalid",
			req:  AddBookRequest{Title: "Physics", Quantity: -1},
			check: func(t *testing.T, f *fixture, b *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
			},
		},
		{
			name: "unknown category needs confirmation",
			req:  AddBookRequest{Title: "Physics", Category: "academic", Quantity: 10},
			check: func(t *testing.T, f *fixture, b *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrCategoryNotFound)
				assert.Equal(t, types.KindCategoryNotFound, types.KindOf(err))
				assert.Empty(t, f.rec.actions)
			},
		},
		{
			name: "confirmed category is created",
			req:  AddBookRequest{Title: "Physics", Category: "academic", Quantity: 10, CreateCategory: true},
			check: func(t *testing.T, f *fixture, b *types.Book, err error) {
				require.NoError(t, err)
				assert.Equal(t, "Academic", b.Category)
				cats, err := f.svc.ListCategories(context.Background())
				require.NoError(t, err)
				assert.Contains(t, cats, types.Category{Name: "Academic"})
				assert.Equal(t, []string{"ADDED 'Academic'", "ADDED 'Physics, Academic, 10'"}, f.rec.actions)
			},
		},
		{
			name: "second add of the same pair fails and leaves one row",
			req:  AddBookRequest{Title: "physics", Category: "ACADEMIC", Quantity: 2},
			setup: func(t *testing.T, f *fixture) {
				f.addBook(t, "Physics", "Academic", 10)
			},
			check: func(t *testing.T, f *fixture, b *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrAlreadyExists)
				books, err := f.svc.ListBooks(context.Background(), sqlite.BookFilter{})
				require.NoError(t, err)
				require.Len(t, books, 1)
				assert.Equal(t, 10, books[0].Quantity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, access.Admin())
			if tt.setup != nil {
				tt.setup(t, f)
				f.rec.actions = nil
			}
			b, err := f.svc.AddBook(ctx, admin, tt.req)
			tt.check(t, f, b, err)
		})
	}
}

func TestAddBook_PermissionDenied(t *testing.T) {
	f := newFixture(t, access.Permissions{access.AddBookTab: access.Granted})
	_, err := f.svc.AddBook(context.Background(), admin, AddBookRequest{
		Title: "Physics", Category: "Academic", Quantity: 1, CreateCategory: true,
	})
	assert.ErrorIs(t, err, types.ErrPermissionDenied, "creating a category needs add_category")

	f = newFixture(t, access.Permissions{})
	_, err = f.svc.AddBook(context.Background(), admin, AddBookRequest{Title: "Physics", Quantity: 1})
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
}

func TestSearchBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.Admin())
	f.addBook(t, "Physics", "Academic", 10)
	f.addBook(t, "Physics", "Science", 2)
	f.addBook(t, "Dune", "Fiction", 1)

	tests := []struct {
		name       string
		title      string
		category   string
		want       types.SearchOutcome
		wantBook   string
		categories []string
	}{
		{"exact match", "physics", "academic", types.Found, "Academic", nil},
		{"other categories", "Physics", "Fiction", types.FoundUnderOtherCategory, "", []string{"Academic", "Science"}},
		{"not found", "Chemistry", "Academic", types.NotFound, "", nil},
		{"single match without category", "Dune", "", types.Found, "Fiction", nil},
		{"several matches without category", "Physics", "", types.FoundUnderOtherCategory, "", []string{"Academic", "Science"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.SearchBook(ctx, tt.title, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			if tt.wantBook != "" {
				require.NotNil(t, res.Book)
				assert.Equal(t, tt.wantBook, res.Book.Category)
			}
			if tt.categories != nil {
				assert.Equal(t, tt.categories, res.Categories())
			}
		})
	}

	_, err := f.svc.SearchBook(ctx, " ", "Academic")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestEditBook(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(b *types.Book) EditBookRequest
		check func(t *testing.T, f *fixture, got *types.Book, err error)
	}{
		{
			name: "unchanged values are a no-op",
			edit: func(b *types.Book) EditBookRequest {
				return EditBookRequest{BookID: b.BookID, Title: "physics ", Category: "Academic", Quantity: 10}
			},
			check: func(t *testing.T, f *fixture, got *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrNoChange)
				assert.Empty(t, f.rec.actions)
			},
		},
		{
			name: "quantity change updates the row",
			edit: func(b *types.Book) EditBookRequest {
				return EditBookRequest{BookID: b.BookID, Title: "Physics", Category: "Academic", Quantity: 12}
			},
			check: func(t *testing.T, f *fixture, got *types.Book, err error) {
				require.NoError(t, err)
				assert.Equal(t, 12, got.Quantity)
				assert.Equal(t, []string{"EDITED FROM 'Physics, Academic, 10' TO 'Physics, Academic, 12'"}, f.rec.actions)
			},
		},
		{
			name: "moving onto an existing pair fails",
			edit: func(b *types.Book) EditBookRequest {
				return EditBookRequest{BookID: b.BookID, Title: "Physics", Category: "Science", Quantity: 10}
			},
			check: func(t *testing.T, f *fixture, got *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrAlreadyExists)
			},
		},
		{
			name: "renaming onto an existing title in the same category fails",
			edit: func(b *types.Book) EditBookRequest {
				return EditBookRequest{BookID: b.BookID, Title: "Algebra", Category: "Academic", Quantity: 10}
			},
			check: func(t *testing.T, f *fixture, got *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrAlreadyExists)
			},
		},
		{
			name: "moving to a new category needs confirmation",
			edit: func(b *types.Book) EditBookRequest {
				return EditBookRequest{BookID: b.BookID, Title: "Physics", Category: "Reference", Quantity: 10}
			},
			check: func(t *testing.T, f *fixture, got *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrCategoryNotFound)
			},
		},
		{
			name: "unknown id is not found",
			edit: func(b *types.Book) EditBookRequest {
				return EditBookRequest{BookID: "missing", Title: "Physics", Category: "Academic", Quantity: 1}
			},
			check: func(t *testing.T, f *fixture, got *types.Book, err error) {
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, access.Admin())
			b := f.addBook(t, "Physics", "Academic", 10)
			f.addBook(t, "Physics", "Science", 2)
			f.addBook(t, "Algebra", "Academic", 2)
			f.rec.actions = nil

			got, err := f.svc.EditBook(ctx, admin, tt.edit(b))
			tt.check(t, f, got, err)
		})
	}
}

func TestDeleteBook(t *testing.T) {
	ctx := context.Background()

	t.Run("removes exactly one row", func(t *testing.T) {
		f := newFixture(t, access.Admin())
		f.addBook(t, "Physics", "Academic", 10)
		f.addBook(t, "Physics", "Science", 2)
		f.rec.actions = nil

		require.NoError(t, f.svc.DeleteBook(ctx, admin, "physics", "academic"))
		cats, err := f.svc.CategoriesOf(ctx, "Physics")
		require.NoError(t, err)
		assert.Equal(t, []string{"Science"}, cats)
		assert.Equal(t, []string{"DELETED 'Physics, Academic'"}, f.rec.actions)
	})

	t.Run("missing from category lists alternatives", func(t *testing.T) {
		f := newFixture(t, access.Admin())
		f.addBook(t, "Physics", "Science", 2)

		err := f.svc.DeleteBook(ctx, admin, "Physics", "Academic")
		assert.ErrorIs(t, err, types.ErrNotFound)
		var nic *types.NotInCategoryError
		require.True(t, errors.As(err, &nic))
		assert.Equal(t, []string{"Science"}, nic.Categories)
	})

	t.Run("blocked while loans are outstanding", func(t *testing.T) {
		f := newFixture(t, access.Admin())
		b := f.addBook(t, "Physics", "Academic", 10)
		for _, name := range []string{"Amara", "Bongani", "Chipo"} {
			f.lendDirect(t, b.BookID, name, 1)
		}

		err := f.svc.DeleteBook(ctx, admin, "Physics", "Academic")
		assert.ErrorIs(t, err, types.ErrHasOutstandingLoans)
		var ole *types.OutstandingLoansError
		require.True(t, errors.As(err, &ole))
		assert.Equal(t, "Amara Mwansa 10C1 H3WC, Bongani Mwansa 10C1 H3WC and 1 more", ole.Summary())

		res, err := f.svc.SearchBook(ctx, "Physics", "Academic")
		require.NoError(t, err)
		assert.Equal(t, types.Found, res.Outcome, "row kept")
	})

	t.Run("allowed once every loan is returned", func(t *testing.T) {
		f := newFixture(t, access.Admin())
		b := f.addBook(t, "Physics", "Academic", 10)
		f.lendDirect(t, b.BookID, "Amara", 2)

		st, err := f.backend.Store()
		require.NoError(t, err)
		owed, err := st.Loans.Outstanding(ctx, sqlite.OwedFilter{BookID: b.BookID})
		require.NoError(t, err)
		require.Len(t, owed, 1)
		require.NoError(t, st.Loans.Reduce(ctx, owed[0].ClientID, b.BookID, 2))

		assert.NoError(t, f.svc.DeleteBook(ctx, admin, "Physics", "Academic"))
	})
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.Admin())

	name, err := f.svc.AddCategory(ctx, admin, " science fiction ")
	require.NoError(t, err)
	assert.Equal(t, "Science Fiction", name)

	_, err = f.svc.AddCategory(ctx, admin, "SCIENCE FICTION")
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	_, err = f.svc.AddCategory(ctx, admin, "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	found, err := f.svc.SearchCategory(ctx, "fiction")
	require.NoError(t, err)
	assert.Equal(t, []types.Category{{Name: "Science Fiction"}}, found)
}
