package sqlite

// Schema DDL for all tables. Statements are idempotent so Attach can run
// them against an existing database file.
const (
	createUsers = `CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    user_name TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createCategories = `CREATE TABLE IF NOT EXISTS categories (
    name TEXT PRIMARY KEY COLLATE NOCASE
);`

	createBooks = `CREATE TABLE IF NOT EXISTS books (
    book_id TEXT PRIMARY KEY,
    title TEXT NOT NULL COLLATE NOCASE,
    category TEXT NOT NULL COLLATE NOCASE,
    quantity INTEGER NOT NULL CHECK (quantity >= 0),
    UNIQUE (title, category),
    FOREIGN KEY (category) REFERENCES categories(name) ON UPDATE CASCADE
);`

	createClasses = `CREATE TABLE IF NOT EXISTS classes (
    name TEXT PRIMARY KEY COLLATE NOCASE
);`

	createHouses = `CREATE TABLE IF NOT EXISTS houses (
    name TEXT PRIMARY KEY COLLATE NOCASE
);`

	createClients = `CREATE TABLE IF NOT EXISTS clients (
    client_id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL COLLATE NOCASE,
    last_name TEXT NOT NULL COLLATE NOCASE,
    class TEXT NOT NULL COLLATE NOCASE,
    house TEXT NOT NULL COLLATE NOCASE,
    UNIQUE (first_name, last_name, class, house)
);`

	createLoans = `CREATE TABLE IF NOT EXISTS client_records (
    client_id TEXT NOT NULL,
    book_id TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 0),
    returned INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (client_id, book_id),
    FOREIGN KEY (client_id) REFERENCES clients(client_id),
    FOREIGN KEY (book_id) REFERENCES books(book_id) ON DELETE CASCADE
);`

	createTransactions = `CREATE TABLE IF NOT EXISTS transactions (
    transaction_id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    book_id TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 0),
    type TEXT NOT NULL CHECK (type IN ('LEND', 'RETRIEVE')),
    user_id TEXT NOT NULL,
    occurred_at TEXT NOT NULL,
    day TEXT NOT NULL
);`

	createHistory = `CREATE TABLE IF NOT EXISTS history (
    history_id TEXT PRIMARY KEY,
    user_name TEXT NOT NULL,
    action TEXT NOT NULL,
    table_name TEXT,
    recorded_at TEXT NOT NULL
);`

	createPermissions = `CREATE TABLE IF NOT EXISTS user_permissions (
    user_id TEXT NOT NULL,
    action TEXT NOT NULL,
    level INTEGER NOT NULL CHECK (level IN (0, 1, 2)),
    PRIMARY KEY (user_id, action),
    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxBooksTitle        = `CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);`
	idxClientsClass      = `CREATE INDEX IF NOT EXISTS idx_clients_class ON clients(class);`
	idxClientsHouse      = `CREATE INDEX IF NOT EXISTS idx_clients_house ON clients(house);`
	idxLoansBook         = `CREATE INDEX IF NOT EXISTS idx_client_records_book ON client_records(book_id);`
	idxTransactionsDay   = `CREATE INDEX IF NOT EXISTS idx_transactions_day ON transactions(day);`
	idxTransactionsPair  = `CREATE INDEX IF NOT EXISTS idx_transactions_pair ON transactions(client_id, book_id);`
	idxHistoryRecordedAt = `CREATE INDEX IF NOT EXISTS idx_history_recorded_at ON history(recorded_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createUsers,
	createCategories,
	createBooks,
	createClasses,
	createHouses,
	createClients,
	createLoans,
	createTransactions,
	createHistory,
	createPermissions,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxBooksTitle,
	idxClientsClass,
	idxClientsHouse,
	idxLoansBook,
	idxTransactionsDay,
	idxTransactionsPair,
	idxHistoryRecordedAt,
}
