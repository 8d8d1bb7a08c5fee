package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/ledger"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func printReceipt(w io.Writer, verb string, r *ledger.Receipt) {
	prep := "to"
	if r.Transaction.Type == types.TxRetrieve {
		prep = "from"
	}
	fmt.Fprintf(w, "%s %d of %q (%s) %s %s\n", verb, r.Transaction.Quantity, r.Book.Title, r.Book.Category,
		prep, r.Client.Ref())
	fmt.Fprintf(w, "Available now: %d; owed by client: %d\n", r.Book.Quantity, r.Loan.Quantity)
}

func (a *app) lendCmd() *cobra.Command {
	var req ledger.LendRequest
	cmd := &cobra.Command{
		Use:   "lend <title>",
		Short: "Lend copies of a book to a client",
		Long: `Lend moves copies of a book to a client. A client not seen before is
added on the way.

When fewer copies are available than requested the lend is refused with the
available amount; --take-all lends that amount instead.

Example:
  librarian lend "Physics" --category Academic --quantity 3 \
    --first Amara --last Mwansa --class 10C1 --house H3WC`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.IssueBookTab); err != nil {
				return err
			}
			req.Title = args[0]
			r, err := a.ledger.Lend(cmd.Context(), a.actor, req)
			var se *types.StockError
			if errors.As(err, &se) && se.Available > 0 {
				return fmt.Errorf("%w (rerun with --take-all to lend %d)", err, se.Available)
			}
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), r, func(w io.Writer) { printReceipt(w, "Lent", r) })
		},
	}
	clientFlags(cmd, &req.Client)
	cmd.Flags().StringVar(&req.Category, "category", "", "book category (required)")
	cmd.Flags().IntVar(&req.Quantity, "quantity", 1, "copies to lend")
	cmd.Flags().BoolVar(&req.TakeAll, "take-all", false, "lend whatever is available when stock is short")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (a *app) retrieveCmd() *cobra.Command {
	var req ledger.RetrieveRequest
	cmd := &cobra.Command{
		Use:   "retrieve <title>",
		Short: "Take copies of a book back from a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.IssueBookTab); err != nil {
				return err
			}
			req.Title = args[0]
			r, err := a.ledger.Retrieve(cmd.Context(), a.actor, req)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), r, func(w io.Writer) { printReceipt(w, "Retrieved", r) })
		},
	}
	clientFlags(cmd, &req.Client)
	cmd.Flags().StringVar(&req.Category, "category", "", "book category (required)")
	cmd.Flags().IntVar(&req.Quantity, "quantity", 1, "copies to take back")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show circulation totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.DashboardTab); err != nil {
				return err
			}
			d, err := a.ledger.LoadDashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), d, func(w io.Writer) {
				table(w, []string{"", "TODAY", "TOTAL"}, [][]string{
					{"Lent", fmt.Sprint(d.LentToday), fmt.Sprint(d.TotalLent)},
					{"Retrieved", fmt.Sprint(d.RetrievedToday), fmt.Sprint(d.TotalRetrieved)},
					{"Outstanding", "", fmt.Sprint(d.Outstanding)},
				})
			})
		},
	}
}
