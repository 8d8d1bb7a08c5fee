package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/catalog"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) bookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Add, search, edit, delete, and list books",
	}
	cmd.AddCommand(a.bookAddCmd(), a.bookSearchCmd(), a.bookEditCmd(), a.bookDeleteCmd(), a.bookListCmd())
	return cmd
}

func bookRows(books []types.Book) [][]string {
	rows := make([][]string, len(books))
	for i, b := range books {
		rows[i] = []string{b.Title, b.Category, strconv.Itoa(b.Quantity)}
	}
	return rows
}

func (a *app) bookAddCmd() *cobra.Command {
	var req catalog.AddBookRequest
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a book",
		Long: `Add a (title, category) row with an available quantity.

A category that does not exist yet is created only with --create-category.

Example:
  librarian book add "Physics" --category Academic --quantity 10
  librarian book add "Dune" --category "Science Fiction" --create-category`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.BooksTab); err != nil {
				return err
			}
			req.Title = args[0]
			book, err := a.catalog.AddBook(cmd.Context(), a.actor, req)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), book, func(w io.Writer) {
				fmt.Fprintf(w, "Added %q in %s (%d available)\n", book.Title, book.Category, book.Quantity)
			})
		},
	}
	cmd.Flags().StringVar(&req.Category, "category", "", "category (default: Unknown)")
	cmd.Flags().IntVar(&req.Quantity, "quantity", 0, "available copies")
	cmd.Flags().BoolVar(&req.CreateCategory, "create-category", false, "create the category if it does not exist")
	return cmd
}

func (a *app) bookSearchCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Look a title up, optionally within one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.BooksTab); err != nil {
				return err
			}
			res, err := a.catalog.SearchBook(cmd.Context(), args[0], category)
			if err != nil {
				return err
			}
			out := map[string]any{"outcome": res.Outcome.String(), "book": res.Book, "matches": res.Matches}
			return a.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				switch res.Outcome {
				case types.Found:
					table(w, []string{"TITLE", "CATEGORY", "AVAILABLE"}, bookRows([]types.Book{*res.Book}))
				case types.FoundUnderOtherCategory:
					fmt.Fprintln(w, "Found under other categories:")
					table(w, []string{"TITLE", "CATEGORY", "AVAILABLE"}, bookRows(res.Matches))
				default:
					fmt.Fprintln(w, "Not found")
				}
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category to search in")
	return cmd
}

func (a *app) bookEditCmd() *cobra.Command {
	var (
		category, newTitle, newCategory string
		quantity                        int
		createCategory                  bool
	)
	cmd := &cobra.Command{
		Use:   "edit <title>",
		Short: "Change the title, category, or quantity of a book",
		Long: `Edit the book identified by <title> and --category. Values not given
keep their current setting.

Example:
  librarian book edit "Physics" --category Academic --quantity 12
  librarian book edit "Phisics" --category Academic --new-title "Physics"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.signIn(ctx, access.BooksTab); err != nil {
				return err
			}
			res, err := a.catalog.SearchBook(ctx, args[0], category)
			if err != nil {
				return err
			}
			if res.Outcome != types.Found {
				return &types.NotInCategoryError{Title: args[0], Category: category, Categories: res.Categories()}
			}
			req := catalog.EditBookRequest{
				BookID:         res.Book.BookID,
				Title:          res.Book.Title,
				Category:       res.Book.Category,
				Quantity:       res.Book.Quantity,
				CreateCategory: createCategory,
			}
			if newTitle != "" {
				req.Title = newTitle
			}
			if newCategory != "" {
				req.Category = newCategory
			}
			if cmd.Flags().Changed("quantity") {
				req.Quantity = quantity
			}
			book, err := a.catalog.EditBook(ctx, a.actor, req)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), book, func(w io.Writer) {
				fmt.Fprintf(w, "Saved %q in %s (%d available)\n", book.Title, book.Category, book.Quantity)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "current category (required)")
	cmd.Flags().StringVar(&newTitle, "new-title", "", "new title")
	cmd.Flags().StringVar(&newCategory, "new-category", "", "new category")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "new available quantity")
	cmd.Flags().BoolVar(&createCategory, "create-category", false, "create the new category if it does not exist")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (a *app) bookDeleteCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "delete <title>",
		Short: "Delete a book no client still owes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.BooksTab); err != nil {
				return err
			}
			if err := a.catalog.DeleteBook(cmd.Context(), a.actor, args[0], category); err != nil {
				return err
			}
			out := map[string]string{"title": args[0], "category": category, "status": "deleted"}
			return a.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %q from %s\n", args[0], category)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category (required)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (a *app) bookListCmd() *cobra.Command {
	var filter sqlite.BookFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.BooksTab); err != nil {
				return err
			}
			books, err := a.catalog.ListBooks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), books, func(w io.Writer) {
				table(w, []string{"TITLE", "CATEGORY", "AVAILABLE"}, bookRows(books))
			})
		},
	}
	cmd.Flags().StringVar(&filter.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&filter.Title, "title", "", "title contains")
	cmd.Flags().BoolVar(&filter.InStock, "in-stock", false, "only books with copies available")
	return cmd
}

func (a *app) categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Add, list, and search categories",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.BooksTab); err != nil {
				return err
			}
			name, err := a.catalog.AddCategory(cmd.Context(), a.actor, args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), types.Category{Name: name}, func(w io.Writer) {
				fmt.Fprintf(w, "Added category %s\n", name)
			})
		},
	}

	printCategories := func(cmd *cobra.Command, cats []types.Category) error {
		return a.emit(cmd.OutOrStdout(), cats, func(w io.Writer) {
			for _, c := range cats {
				fmt.Fprintln(w, c.Name)
			}
		})
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.BooksTab); err != nil {
				return err
			}
			cats, err := a.catalog.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			return printCategories(cmd, cats)
		},
	}

	search := &cobra.Command{
		Use:   "search <fragment>",
		Short: "Find categories whose name contains fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.BooksTab); err != nil {
				return err
			}
			cats, err := a.catalog.SearchCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCategories(cmd, cats)
		},
	}

	cmd.AddCommand(add, list, search)
	return cmd
}
