package history

import (
	"fmt"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// BookAdded describes a new book row with its starting quantity.
func BookAdded(b types.Book) string {
	return fmt.Sprintf("ADDED '%s, %s, %d'", b.Title, b.Category, b.Quantity)
}

// BookDeleted describes a removed book row.
func BookDeleted(b types.Book) string {
	return fmt.Sprintf("DELETED '%s, %s'", b.Title, b.Category)
}

// BookEdited describes a book row before and after an edit.
func BookEdited(from, to types.Book) string {
	return fmt.Sprintf("EDITED FROM '%s, %s, %d' TO '%s, %s, %d'",
		from.Title, from.Category, from.Quantity, to.Title, to.Category, to.Quantity)
}

// Added describes a new named row such as a category, class, or house.
func Added(name string) string {
	return fmt.Sprintf("ADDED '%s'", name)
}

// Deleted describes a removed named row.
func Deleted(name string) string {
	return fmt.Sprintf("DELETED '%s'", name)
}

// Renamed describes a name change.
func Renamed(from, to string) string {
	return fmt.Sprintf("EDITED FROM '%s' TO '%s'", from, to)
}

// ClientAdded describes a client created on first lend or by hand.
func ClientAdded(c types.Client) string {
	return fmt.Sprintf("ADDED '%s %s, %s, %s'", c.FirstName, c.LastName, c.Class, c.House)
}

// PermissionsEdited describes a change to a user's permissions.
func PermissionsEdited(userName string) string {
	return fmt.Sprintf("EDITED '%s' permissions.", userName)
}

// PasswordChanged describes a user changing their own password.
func PasswordChanged(userName string) string {
	return fmt.Sprintf("CHANGED '%s' password.", userName)
}

// UserAdded describes a new operator account.
func UserAdded(u types.User) string {
	return fmt.Sprintf("ADDED '%s, %s'", u.Name, u.UserName)
}

// PresetGiven describes a permission preset applied to a user.
func PresetGiven(userName, preset string) string {
	return fmt.Sprintf("GAVE '%s %s permissions'", userName, preset)
}
