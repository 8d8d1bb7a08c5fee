package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/accounts"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}

	var name string
	create := &cobra.Command{
		Use:   "create <user-name>",
		Short: "Create an operator with the standard permissions",
		Long: `Create an operator. The new password is read from LIBRARIAN_NEW_PASSWORD
or prompted for.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.UsersTab); err != nil {
				return err
			}
			password, err := a.password(envNewPassword, fmt.Sprintf("Password for new user %s: ", args[0]))
			if err != nil {
				return err
			}
			u, err := a.accounts.Create(cmd.Context(), a.actor, accounts.CreateRequest{
				UserName: args[0], Name: name, Password: password,
			})
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), u, func(w io.Writer) {
				fmt.Fprintf(w, "Created user %s\n", u.UserName)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "full name (required)")
	_ = create.MarkFlagRequired("name")

	del := &cobra.Command{
		Use:   "delete <user-name>",
		Short: "Delete an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.UsersTab); err != nil {
				return err
			}
			if err := a.accounts.Delete(cmd.Context(), a.actor, args[0]); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), map[string]string{"user_name": args[0], "status": "deleted"}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted user %s\n", args[0])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.UsersTab); err != nil {
				return err
			}
			users, err := a.accounts.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), users, func(w io.Writer) {
				rows := make([][]string, len(users))
				for i, u := range users {
					rows[i] = []string{u.UserName, u.Name}
				}
				table(w, []string{"USER", "NAME"}, rows)
			})
		},
	}

	passwd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your own password",
		Long: `Change the signed-in operator's password. The new password is read from
LIBRARIAN_NEW_PASSWORD or prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			current, err := a.password(envPassword, "Current password: ")
			if err != nil {
				return err
			}
			actor, err := a.accounts.Authenticate(cmd.Context(), a.userName(), current)
			if err != nil {
				return err
			}
			next, err := a.password(envNewPassword, "New password: ")
			if err != nil {
				return err
			}
			if err := a.accounts.ChangePassword(cmd.Context(), actor, current, next); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), map[string]string{"user_name": actor.UserName, "status": "password changed"}, func(w io.Writer) {
				fmt.Fprintln(w, "Password changed")
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename <new-user-name>",
		Short: "Change your own user name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context()); err != nil {
				return err
			}
			actor, err := a.accounts.ChangeUsername(cmd.Context(), a.actor, args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), actor, func(w io.Writer) {
				fmt.Fprintf(w, "You are now %s\n", actor.UserName)
			})
		},
	}

	cmd.AddCommand(create, del, list, passwd, rename)
	return cmd
}

// userName returns the operator named by --user, config, or the default.
func (a *app) userName() string {
	if a.flags.user != "" {
		return a.flags.user
	}
	if u := a.cfg.GetString(cfgKeyUser); u != "" {
		return u
	}
	return accounts.AdminUserName
}

func printPermissions(w io.Writer, p access.Permissions) {
	nested := make(map[access.Action]bool)
	for _, act := range access.Actions {
		for _, c := range act.Children() {
			nested[c] = true
		}
	}
	rows := make([][]string, 0, len(access.Actions))
	for _, act := range access.Actions {
		name := string(act)
		if nested[act] {
			name = "  " + name
		}
		rows = append(rows, []string{name, p[act].String()})
	}
	table(w, []string{"ACTION", "LEVEL"}, rows)
}

func permissionsJSON(p access.Permissions) map[string]string {
	out := make(map[string]string, len(p))
	for act, lvl := range p {
		out[string(act)] = lvl.String()
	}
	return out
}

func (a *app) permsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Show and change operator permissions",
	}

	show := &cobra.Command{
		Use:   "show [user-name]",
		Short: "Show the permissions of an operator (default: yourself)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.signIn(ctx); err != nil {
				return err
			}
			target := a.actor.UserName
			if len(args) == 1 && args[0] != target {
				if err := a.perms.Require(ctx, a.actor, access.PermissionsTab); err != nil {
					return err
				}
				target = args[0]
			}
			p, err := a.permissionsOf(cmd, target)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), permissionsJSON(p), func(w io.Writer) { printPermissions(w, p) })
		},
	}

	set := &cobra.Command{
		Use:   "set <user-name> <action=level>...",
		Short: "Change individual permission levels",
		Long: `Set changes the named actions and keeps the rest. Levels are denied,
partial, or granted; partial applies only to the tab actions that have
children.

Example:
  librarian perms set thandi edit_book=granted books_tab=granted`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.UsersTab); err != nil {
				return err
			}
			p, err := a.permissionsOf(cmd, args[0])
			if err != nil {
				return err
			}
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return types.InvalidInputf("%q: want action=level", kv)
				}
				act, err := access.ParseAction(k)
				if err != nil {
					return err
				}
				lvl, err := access.ParseLevel(v)
				if err != nil {
					return err
				}
				p[act] = lvl
			}
			return a.grant(cmd, args[0], p)
		},
	}

	preset := &cobra.Command{
		Use:   "preset <user-name> <admin|standard>",
		Short: "Replace all permissions with a preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.signIn(cmd.Context(), access.UsersTab); err != nil {
				return err
			}
			p, err := access.Preset(args[1])
			if err != nil {
				return err
			}
			return a.grant(cmd, args[0], p)
		},
	}

	cmd.AddCommand(show, set, preset)
	return cmd
}

func (a *app) permissionsOf(cmd *cobra.Command, userName string) (access.Permissions, error) {
	st, err := a.backend.Store()
	if err != nil {
		return nil, err
	}
	u, err := st.Users.GetByName(cmd.Context(), userName)
	if err != nil {
		return nil, err
	}
	return a.perms.Permissions(cmd.Context(), u.UserID)
}

func (a *app) grant(cmd *cobra.Command, userName string, p access.Permissions) error {
	if err := a.perms.Grant(cmd.Context(), a.actor, userName, p); err != nil {
		return err
	}
	return a.emit(cmd.OutOrStdout(), permissionsJSON(p), func(w io.Writer) {
		fmt.Fprintf(w, "Permissions of %s saved\n", userName)
	})
}
