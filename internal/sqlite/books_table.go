package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const bookColumns = "book_id, title, category, quantity"

// BooksTable accesses the books table.
type BooksTable struct {
	q sqlx.ExtContext
}

// BookFilter narrows List. Zero values match everything.
type BookFilter struct {
	Category string
	Title    string // Substring match; LIKE is case-insensitive for ASCII.
	InStock  bool
}

// Get retrieves a book by ID.
func (bt *BooksTable) Get(ctx context.Context, id string) (*types.Book, error) {
	var b types.Book
	err := sqlx.GetContext(ctx, bt.q, &b,
		"SELECT "+bookColumns+" FROM books WHERE book_id = ?", id)
	if err != nil {
		return nil, notFound(err, "book "+id)
	}
	return &b, nil
}

// Find retrieves the book with the given title in the given category.
func (bt *BooksTable) Find(ctx context.Context, title, category string) (*types.Book, error) {
	var b types.Book
	err := sqlx.GetContext(ctx, bt.q, &b,
		"SELECT "+bookColumns+" FROM books WHERE title = ? AND category = ?", title, category)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("book %q in %q", title, category))
	}
	return &b, nil
}

// ByTitle returns every book carrying the title, ordered by category.
func (bt *BooksTable) ByTitle(ctx context.Context, title string) ([]types.Book, error) {
	books := []types.Book{}
	err := sqlx.SelectContext(ctx, bt.q, &books,
		"SELECT "+bookColumns+" FROM books WHERE title = ? ORDER BY category", title)
	if err != nil {
		return nil, fmt.Errorf("fetching books titled %q: %w", title, err)
	}
	return books, nil
}

// List returns books matching the filter ordered by title, then category.
func (bt *BooksTable) List(ctx context.Context, filter BookFilter) ([]types.Book, error) {
	ds := builder.From(types.TableBooks).
		Select("book_id", "title", "category", "quantity").
		Order(goqu.C("title").Asc(), goqu.C("category").Asc())
	if filter.Category != "" {
		ds = ds.Where(goqu.C("category").Eq(filter.Category))
	}
	if filter.Title != "" {
		ds = ds.Where(goqu.C("title").Like("%" + filter.Title + "%"))
	}
	if filter.InStock {
		ds = ds.Where(goqu.C("quantity").Gt(0))
	}

	books := []types.Book{}
	if err := selectInto(ctx, bt.q, &books, ds); err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return books, nil
}

// Insert creates a book. An empty BookID is replaced by a generated one.
// Returns ErrAlreadyExists if the (title, category) pair is taken.
func (bt *BooksTable) Insert(ctx context.Context, b *types.Book) (string, error) {
	if b.BookID == "" {
		b.BookID = generateUUID()
	}
	if err := bt.checkUnique(ctx, b); err != nil {
		return "", err
	}
	_, err := bt.q.ExecContext(ctx,
		"INSERT INTO books (book_id, title, category, quantity) VALUES (?, ?, ?, ?)",
		b.BookID, b.Title, b.Category, b.Quantity)
	if err != nil {
		return "", fmt.Errorf("inserting book: %w", err)
	}
	return b.BookID, nil
}

// Update overwrites title, category, and quantity of an existing book.
func (bt *BooksTable) Update(ctx context.Context, b *types.Book) error {
	if err := bt.checkUnique(ctx, b); err != nil {
		return err
	}
	res, err := bt.q.ExecContext(ctx,
		"UPDATE books SET title = ?, category = ?, quantity = ? WHERE book_id = ?",
		b.Title, b.Category, b.Quantity, b.BookID)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	return requireAffected(res, "book "+b.BookID)
}

// Delete removes a book by ID.
func (bt *BooksTable) Delete(ctx context.Context, id string) error {
	res, err := bt.q.ExecContext(ctx, "DELETE FROM books WHERE book_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	return requireAffected(res, "book "+id)
}

// AdjustQuantity adds delta to the available quantity. A change that would
// take the quantity below zero is refused with ErrInsufficientStock.
func (bt *BooksTable) AdjustQuantity(ctx context.Context, id string, delta int) error {
	res, err := bt.q.ExecContext(ctx,
		"UPDATE books SET quantity = quantity + ? WHERE book_id = ? AND quantity + ? >= 0",
		delta, id, delta)
	if err != nil {
		return fmt.Errorf("adjusting book quantity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjusting book quantity: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := bt.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("book %s: %w", id, types.ErrInsufficientStock)
}

func (bt *BooksTable) checkUnique(ctx context.Context, b *types.Book) error {
	var dupID string
	err := bt.q.QueryRowxContext(ctx,
		"SELECT book_id FROM books WHERE title = ? AND category = ? AND book_id != ?",
		b.Title, b.Category, b.BookID).Scan(&dupID)
	if err == nil {
		return fmt.Errorf("book %q in %q: %w", b.Title, b.Category, types.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking book uniqueness: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, types.ErrNotFound)
	}
	return nil
}
