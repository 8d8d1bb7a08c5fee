package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/report"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

const listTimeLayout = "2006-01-02 15:04"

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Daily circulation series and the transaction log",
	}

	var from, to string
	series := &cobra.Command{
		Use:   "series",
		Short: "LEND and RETRIEVE totals per day",
		Long: `Series prints one line per calendar day in the range, including days
without activity. The range defaults to the last seven days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.ReportTab); err != nil {
				return err
			}
			now := time.Now()
			if to == "" {
				to = now.Format(types.DayLayout)
			}
			if from == "" {
				from = now.AddDate(0, 0, -6).Format(types.DayLayout)
			}
			start, end, err := report.ParseRange(from, to, time.Local)
			if err != nil {
				return err
			}
			points, err := a.reports.DailySeries(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), points, func(w io.Writer) {
				rows := make([][]string, len(points))
				for i, p := range points {
					rows[i] = []string{p.Day, strconv.Itoa(p.Lent), strconv.Itoa(p.Retrieved)}
				}
				table(w, []string{"DAY", "LENT", "RETRIEVED"}, rows)
			})
		},
	}
	series.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	series.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")

	var filter sqlite.TxFilter
	var txType string
	transactions := &cobra.Command{
		Use:   "transactions",
		Short: "List lends and retrieves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.HistoryTab, access.TransactionsHistoryTab); err != nil {
				return err
			}
			filter.Type = types.TxType(strings.ToUpper(txType))
			views, err := a.reports.Transactions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), views, func(w io.Writer) {
				rows := make([][]string, len(views))
				for i, v := range views {
					rows[i] = []string{
						v.OccurredAt.Local().Format(listTimeLayout), v.User, string(v.Type),
						strconv.Itoa(v.Quantity), v.Book, v.Client,
					}
				}
				table(w, []string{"TIME", "USER", "TYPE", "QTY", "BOOK", "CLIENT"}, rows)
			})
		},
	}
	transactions.Flags().StringVar(&filter.UserName, "by", "", "only transactions by this user")
	transactions.Flags().StringVar(&txType, "type", "", "LEND or RETRIEVE")
	transactions.Flags().StringVar(&filter.Day, "day", "", "only this day, YYYY-MM-DD")
	transactions.Flags().UintVar(&filter.Limit, "limit", 50, "maximum rows (0 for all)")

	cmd.AddCommand(series, transactions)
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var filter sqlite.HistoryFilter
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the administrative audit log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.HistoryTab, access.UsersHistoryTab); err != nil {
				return err
			}
			entries, err := a.recorder.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), entries, func(w io.Writer) {
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{e.RecordedAt.Local().Format(listTimeLayout), e.UserName, e.Table, e.Action}
				}
				table(w, []string{"TIME", "USER", "TABLE", "ACTION"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&filter.UserName, "by", "", "only entries by this user")
	cmd.Flags().StringVar(&filter.Table, "table", "", "only entries for this table")
	cmd.Flags().UintVar(&filter.Limit, "limit", 50, "maximum rows (0 for all)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every table to <dir>/<table>.jsonl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.SettingsTab); err != nil {
				return err
			}
			if dir == "" {
				dir = a.backend.Config().DataDir
			}
			counts, err := a.backend.Export(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), counts, func(w io.Writer) {
				for _, t := range types.StandardTableNames {
					fmt.Fprintf(w, "%-16s %d\n", t, counts[t])
				}
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default: data directory)")
	return cmd
}
