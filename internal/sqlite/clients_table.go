package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

const clientColumns = "client_id, first_name, last_name, class, house"

// ClientsTable accesses the clients table.
type ClientsTable struct {
	q sqlx.ExtContext
}

// Get retrieves a client by ID.
func (ct *ClientsTable) Get(ctx context.Context, id string) (*types.Client, error) {
	var c types.Client
	err := sqlx.GetContext(ctx, ct.q, &c, "SELECT "+clientColumns+" FROM clients WHERE client_id = ?", id)
	if err != nil {
		return nil, notFound(err, "client "+id)
	}
	return &c, nil
}

// FindByRef retrieves the client with the given natural key.
func (ct *ClientsTable) FindByRef(ctx context.Context, ref types.ClientRef) (*types.Client, error) {
	var c types.Client
	err := sqlx.GetContext(ctx, ct.q, &c,
		"SELECT "+clientColumns+" FROM clients WHERE first_name = ? AND last_name = ? AND class = ? AND house = ?",
		ref.FirstName, ref.LastName, ref.Class, ref.House)
	if err != nil {
		return nil, notFound(err, "client "+ref.String())
	}
	return &c, nil
}

// Insert creates a client. Returns ErrAlreadyExists if the natural key is
// taken.
func (ct *ClientsTable) Insert(ctx context.Context, c *types.Client) (string, error) {
	if c.ClientID == "" {
		c.ClientID = generateUUID()
	}
	_, err := ct.FindByRef(ctx, c.Ref())
	if err == nil {
		return "", fmt.Errorf("client %s: %w", c.Ref(), types.ErrAlreadyExists)
	}
	if !errors.Is(err, types.ErrNotFound) {
		return "", err
	}
	_, err = ct.q.ExecContext(ctx,
		"INSERT INTO clients (client_id, first_name, last_name, class, house) VALUES (?, ?, ?, ?, ?)",
		c.ClientID, c.FirstName, c.LastName, c.Class, c.House)
	if err != nil {
		return "", fmt.Errorf("inserting client: %w", err)
	}
	return c.ClientID, nil
}

// List returns every client ordered by class, house, then name.
func (ct *ClientsTable) List(ctx context.Context) ([]types.Client, error) {
	clients := []types.Client{}
	err := sqlx.SelectContext(ctx, ct.q, &clients,
		"SELECT "+clientColumns+" FROM clients ORDER BY class, house, last_name, first_name")
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return clients, nil
}

// Reassign moves every client whose column (class or house) equals from to
// the value to. It returns the number of clients moved, or ErrAlreadyExists
// when a moved client would take the natural key of an existing one.
func (ct *ClientsTable) Reassign(ctx context.Context, column, from, to string) (int64, error) {
	other := map[string]string{"class": "house", "house": "class"}[column]
	if other == "" {
		return 0, fmt.Errorf("reassigning clients: unknown column %q", column)
	}
	var clash types.Client
	err := sqlx.GetContext(ctx, ct.q, &clash, fmt.Sprintf(
		`SELECT b.client_id, b.first_name, b.last_name, b.class, b.house
		 FROM clients a JOIN clients b
		   ON a.first_name = b.first_name AND a.last_name = b.last_name AND a.%[2]s = b.%[2]s
		 WHERE a.%[1]s = ? AND b.%[1]s = ? LIMIT 1`, column, other), from, to)
	if err == nil {
		return 0, fmt.Errorf("client %s: %w", clash.Ref(), types.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("checking clients %s: %w", column, err)
	}

	res, err := ct.q.ExecContext(ctx,
		fmt.Sprintf("UPDATE clients SET %s = ? WHERE %s = ?", column, column), to, from)
	if err != nil {
		return 0, fmt.Errorf("reassigning clients %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassigning clients %s: %w", column, err)
	}
	return n, nil
}
