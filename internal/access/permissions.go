// Package access holds the per-user permission model: a fixed set of
// actions, a tri-state level per action, the Admin and Standard presets, and
// the service that checks and grants them.
package access

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Action names one gated tab or operation.
type Action string

// Actions, in the order permission rows are displayed.
const (
	DashboardTab           Action = "dashboard_tab"
	BooksTab               Action = "books_tab"
	AddBookTab             Action = "add_book_tab"
	EditBook               Action = "edit_book"
	DeleteBook             Action = "delete_book"
	AddCategory            Action = "add_category"
	IssueBookTab           Action = "issue_book_tab"
	LendBookTab            Action = "lend_book_tab"
	RetrieveBook           Action = "retrieve_book"
	ReportTab              Action = "report_tab"
	HistoryTab             Action = "history_tab"
	UsersHistoryTab        Action = "users_history_tab"
	TransactionsHistoryTab Action = "transactions_history_tab"
	SettingsTab            Action = "settings_tab"
	AddClass               Action = "add_class"
	DeleteClass            Action = "delete_class"
	ChangeClassName        Action = "change_class_name"
	AddHouse               Action = "add_house"
	DeleteHouse            Action = "delete_house"
	ChangeHouseName        Action = "change_house_name"
	UsersTab               Action = "users_tab"
	CreateUserTab          Action = "create_user_tab"
	DeleteUser             Action = "delete_user"
	PermissionsTab         Action = "permissions_tab"
)

// Actions lists every action in display order.
var Actions = []Action{
	DashboardTab, BooksTab, AddBookTab, EditBook, DeleteBook, AddCategory,
	IssueBookTab, LendBookTab, RetrieveBook, ReportTab, HistoryTab,
	UsersHistoryTab, TransactionsHistoryTab, SettingsTab, AddClass,
	DeleteClass, ChangeClassName, AddHouse, DeleteHouse, ChangeHouseName,
	UsersTab, CreateUserTab, DeleteUser, PermissionsTab,
}

// children maps each parent tab to the actions nested under it.
var children = map[Action][]Action{
	BooksTab:     {AddBookTab, EditBook, DeleteBook, AddCategory},
	IssueBookTab: {LendBookTab, RetrieveBook},
	HistoryTab:   {UsersHistoryTab, TransactionsHistoryTab},
	SettingsTab:  {AddClass, DeleteClass, ChangeClassName, AddHouse, DeleteHouse, ChangeHouseName},
	UsersTab:     {CreateUserTab, DeleteUser, PermissionsTab},
}

// IsParent reports whether a has nested actions and may hold Partial.
func (a Action) IsParent() bool {
	_, ok := children[a]
	return ok
}

// Children returns the actions nested under a parent tab.
func (a Action) Children() []Action {
	return children[a]
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAction resolves an action name.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", types.InvalidInputf("unknown permission %q", s)
	}
	return a, nil
}

// Level is the tri-state grant of one action.
type Level int

// Levels. Partial marks a parent tab with only some children granted.
const (
	Denied Level = iota
	Partial
	Granted
)

// Allows reports whether the level gives access. Partial does.
func (l Level) Allows() bool {
	return l == Partial || l == Granted
}

func (l Level) String() string {
	switch l {
	case Denied:
		return "denied"
	case Partial:
		return "partial"
	case Granted:
		return "granted"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts a level name or its stored digit.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "denied", "deny", "no":
		return Denied, nil
	case "1", "partial":
		return Partial, nil
	case "2", "granted", "grant", "yes":
		return Granted, nil
	default:
		return Denied, types.InvalidInputf("unknown permission level %q", s)
	}
}

// Permissions is the level per action of one user. A missing action is
// Denied.
type Permissions map[Action]Level

// Allows reports whether the permissions grant a.
func (p Permissions) Allows(a Action) bool {
	return p[a].Allows()
}

// Validate rejects unknown actions, out-of-range levels, and Partial on
// actions that are not parent tabs.
func (p Permissions) Validate() error {
	for a, l := range p {
		if !a.Valid() {
			return types.InvalidInputf("unknown permission %q", a)
		}
		if l < Denied || l > Granted {
			return types.InvalidInputf("permission %s: level %d out of range", a, int(l))
		}
		if l == Partial && !a.IsParent() {
			return types.InvalidInputf("permission %s: partial is only valid on parent tabs", a)
		}
	}
	return nil
}

// Clone returns a copy with every action present.
func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(Actions))
	for _, a := range Actions {
		out[a] = p[a]
	}
	return out
}

func (p Permissions) toStored() map[string]int {
	out := make(map[string]int, len(Actions))
	for _, a := range Actions {
		out[string(a)] = int(p[a])
	}
	return out
}

func fromStored(levels map[string]int) Permissions {
	p := make(Permissions, len(Actions))
	for _, a := range Actions {
		p[a] = Level(levels[string(a)])
	}
	return p
}

// Admin returns the preset granting every action.
func Admin() Permissions {
	p := make(Permissions, len(Actions))
	for _, a := range Actions {
		p[a] = Granted
	}
	return p
}

// standardLevels follows Actions order.
var standardLevels = []Level{
	Granted, Partial, Granted, Denied, Denied, Granted,
	Granted, Granted, Granted, Granted, Partial,
	Denied, Granted, Partial, Granted,
	Denied, Denied, Granted, Denied, Denied,
	Denied, Denied, Denied, Denied,
}

// Standard returns the preset for day-to-day desk staff: books can be added
// and lent but not edited or deleted, and user administration is closed.
func Standard() Permissions {
	p := make(Permissions, len(Actions))
	for i, a := range Actions {
		p[a] = standardLevels[i]
	}
	return p
}

// Preset resolves a preset name: admin or standard.
func Preset(name string) (Permissions, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin":
		return Admin(), nil
	case "standard":
		return Standard(), nil
	default:
		return nil, types.InvalidInputf("unknown preset %q", name)
	}
}
