package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// clientFlags registers the four natural-key flags of a client.
func clientFlags(cmd *cobra.Command, ref *types.ClientRef) {
	fs := cmd.Flags()
	fs.StringVar(&ref.FirstName, "first", "", "client first name")
	fs.StringVar(&ref.LastName, "last", "", "client last name")
	fs.StringVar(&ref.Class, "class", "", "client class")
	fs.StringVar(&ref.House, "house", "", "client house")
}

func owedRows(owed []types.OwedBook) [][]string {
	rows := make([][]string, len(owed))
	for i, o := range owed {
		rows[i] = []string{o.ClientRef().String(), o.Title, o.Category, strconv.Itoa(o.Quantity)}
	}
	return rows
}

func (a *app) printOwed(w io.Writer, owed []types.OwedBook) error {
	return a.emit(w, owed, func(w io.Writer) {
		if len(owed) == 0 {
			fmt.Fprintln(w, "Nothing outstanding")
			return
		}
		table(w, []string{"CLIENT", "TITLE", "CATEGORY", "OWED"}, owedRows(owed))
	})
}

func (a *app) clientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Add and list clients and the books they owe",
	}

	var addRef types.ClientRef
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.IssueBookTab); err != nil {
				return err
			}
			c, created, err := a.directory.AddOrGetClient(cmd.Context(), a.actor, addRef)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), c, func(w io.Writer) {
				if created {
					fmt.Fprintf(w, "Added %s\n", c.Ref())
				} else {
					fmt.Fprintf(w, "%s already exists\n", c.Ref())
				}
			})
		},
	}
	clientFlags(add, &addRef)

	list := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.IssueBookTab); err != nil {
				return err
			}
			clients, err := a.directory.ListClients(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), clients, func(w io.Writer) {
				rows := make([][]string, len(clients))
				for i, c := range clients {
					rows[i] = []string{c.FirstName, c.LastName, c.Class, c.House}
				}
				table(w, []string{"FIRST", "LAST", "CLASS", "HOUSE"}, rows)
			})
		},
	}

	var owingRef types.ClientRef
	owing := &cobra.Command{
		Use:   "owing",
		Short: "List the books one client owes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.IssueBookTab); err != nil {
				return err
			}
			owed, err := a.directory.OwedBooks(cmd.Context(), owingRef)
			if err != nil {
				return err
			}
			return a.printOwed(cmd.OutOrStdout(), owed)
		},
	}
	clientFlags(owing, &owingRef)

	cmd.AddCommand(add, list, owing)
	return cmd
}

func (a *app) outstandingCmd() *cobra.Command {
	var filter sqlite.OwedFilter
	cmd := &cobra.Command{
		Use:   "outstanding",
		Short: "List every unreturned loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.IssueBookTab); err != nil {
				return err
			}
			owed, err := a.directory.Outstanding(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.printOwed(cmd.OutOrStdout(), owed)
		},
	}
	cmd.Flags().StringVar(&filter.Class, "class", "", "only clients of this class")
	cmd.Flags().StringVar(&filter.House, "house", "", "only clients of this house")
	return cmd
}

// lookupSpec describes the class or house command family.
type lookupSpec struct {
	name   string
	plural string
	add    func(a *app, ctx context.Context, name string) (string, error)
	del    func(a *app, ctx context.Context, name string) error
	rename func(a *app, ctx context.Context, from, to string) error
	list   func(a *app, ctx context.Context) ([]string, error)
}

var (
	classLookup = lookupSpec{
		name:   "class",
		plural: "classes",
		add:    func(a *app, ctx context.Context, n string) (string, error) { return a.directory.AddClass(ctx, a.actor, n) },
		del:    func(a *app, ctx context.Context, n string) error { return a.directory.DeleteClass(ctx, a.actor, n) },
		rename: func(a *app, ctx context.Context, f, t string) error { return a.directory.RenameClass(ctx, a.actor, f, t) },
		list:   func(a *app, ctx context.Context) ([]string, error) { return a.directory.ListClasses(ctx) },
	}
	houseLookup = lookupSpec{
		name:   "house",
		plural: "houses",
		add:    func(a *app, ctx context.Context, n string) (string, error) { return a.directory.AddHouse(ctx, a.actor, n) },
		del:    func(a *app, ctx context.Context, n string) error { return a.directory.DeleteHouse(ctx, a.actor, n) },
		rename: func(a *app, ctx context.Context, f, t string) error { return a.directory.RenameHouse(ctx, a.actor, f, t) },
		list:   func(a *app, ctx context.Context) ([]string, error) { return a.directory.ListHouses(ctx) },
	}
)

func (a *app) lookupCmd(spec lookupSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.name,
		Short: fmt.Sprintf("Manage the %s list", spec.name),
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: fmt.Sprintf("Add a %s", spec.name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.SettingsTab); err != nil {
				return err
			}
			name, err := spec.add(a, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), map[string]string{spec.name: name}, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s %s\n", spec.name, name)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: fmt.Sprintf("Delete a %s no owing client belongs to", spec.name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.SettingsTab); err != nil {
				return err
			}
			if err := spec.del(a, cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), map[string]string{spec.name: args[0], "status": "deleted"}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %s %s\n", spec.name, args[0])
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename <current> <new>",
		Short: fmt.Sprintf("Rename a %s and move its clients", spec.name),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.SettingsTab); err != nil {
				return err
			}
			if err := spec.rename(a, cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), map[string]string{"from": args[0], "to": args[1]}, func(w io.Writer) {
				fmt.Fprintf(w, "Renamed %s %s to %s\n", spec.name, args[0], args[1])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", spec.plural),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.SettingsTab); err != nil {
				return err
			}
			names, err := spec.list(a, cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), names, func(w io.Writer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		},
	}

	cmd.AddCommand(add, del, rename, list)
	return cmd
}
