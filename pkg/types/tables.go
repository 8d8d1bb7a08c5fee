package types

// Persisted table names. History entries name the table they affected.
const (
	TableUsers       = "users"
	TableBooks       = "books"
	TableCategories  = "categories"
	TableClients     = "clients"
	TableLoans       = "client_records"
	TableTxns        = "transactions"
	TableHistory     = "history"
	TablePermissions = "user_permissions"
	TableClasses     = "classes"
	TableHouses      = "houses"
)

// StandardTableNames lists every table in dependency order.
var StandardTableNames = []string{
	TableUsers,
	TableCategories,
	TableBooks,
	TableClasses,
	TableHouses,
	TableClients,
	TableLoans,
	TableTxns,
	TableHistory,
	TablePermissions,
}
