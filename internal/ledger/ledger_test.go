package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

var (
	librarian = types.Actor{UserID: "u-lib", UserName: "librarian"}
	amara     = types.ClientRef{FirstName: "Amara", LastName: "Mwansa", Class: "10C1", House: "H3WC"}
	chipo     = types.ClientRef{FirstName: "Chipo", LastName: "Banda", Class: "11A2", House: "KPH"}
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fakeRecorder struct{ actions []string }

func (f *fakeRecorder) Record(_ context.Context, _ types.Actor, action, _ string) {
	f.actions = append(f.actions, action)
}

type fixture struct {
	svc     *Service
	backend *sqlite.Backend
	clock   *clock
	rec     *fakeRecorder
}

func newFixture(t *testing.T, p access.Permissions) *fixture {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{
		DataDir: t.TempDir(),
		Classes: []string{"10C1", "11A2"},
		Houses:  []string{"H3WC", "KPH"},
	}))
	t.Cleanup(func() { b.Detach() })
	c := &clock{t: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}
	rec := &fakeRecorder{}
	return &fixture{
		svc:     NewService(b, access.Fixed(p), WithClock(c.now), WithRecorder(rec)),
		backend: b,
		clock:   c,
		rec:     rec,
	}
}

func (f *fixture) store(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := f.backend.Store()
	require.NoError(t, err)
	return st
}

func (f *fixture) addBook(t *testing.T, title, category string, qty int) *types.Book {
	t.Helper()
	ctx := context.Background()
	st := f.store(t)
	if _, err := st.Categories.Lookup(ctx, category); errors.Is(err, types.ErrCategoryNotFound) {
		require.NoError(t, st.Categories.Insert(ctx, category))
	}
	b := &types.Book{Title: title, Category: category, Quantity: qty}
	_, err := st.Books.Insert(ctx, b)
	require.NoError(t, err)
	return b
}

func (f *fixture) bookQty(t *testing.T, id string) int {
	t.Helper()
	b, err := f.store(t).Books.Get(context.Background(), id)
	require.NoError(t, err)
	return b.Quantity
}

func (f *fixture) lend(t *testing.T, ref types.ClientRef, title, category string, qty int) *Receipt {
	t.Helper()
	r, err := f.svc.Lend(context.Background(), librarian, LendRequest{Client: ref, Title: title, Category: category, Quantity: qty})
	require.NoError(t, err)
	return r
}

func (f *fixture) retrieve(t *testing.T, ref types.ClientRef, title, category string, qty int) *Receipt {
	t.Helper()
	r, err := f.svc.Retrieve(context.Background(), librarian, RetrieveRequest{Client: ref, Title: title, Category: category, Quantity: qty})
	require.NoError(t, err)
	return r
}

func TestPhysicsScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.Admin())
	physics := f.addBook(t, "Physics", "Academic", 10)

	r := f.lend(t, amara, "physics", "academic", 3)
	assert.Equal(t, 7, f.bookQty(t, physics.BookID))
	assert.Equal(t, types.Loan{ClientID: r.Client.ClientID, BookID: physics.BookID, Quantity: 3}, r.Loan)
	assert.Equal(t, types.TxLend, r.Transaction.Type)
	assert.Equal(t, 3, r.Transaction.Quantity)
	assert.Equal(t, "2026-03-02", r.Transaction.Day)
	assert.Equal(t, librarian.UserID, r.Transaction.UserID)

	txns, err := f.store(t).Transactions.List(ctx, sqlite.TxFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Physics, Academic", txns[0].Book)

	r = f.lend(t, amara, "Physics", "Academic", 2)
	assert.Equal(t, 5, r.Loan.Quantity)
	assert.False(t, r.Loan.Returned)

	r = f.retrieve(t, amara, "Physics", "Academic", 5)
	assert.Equal(t, 0, r.Loan.Quantity)
	assert.True(t, r.Loan.Returned)
	assert.Equal(t, types.LoanReturned, r.Loan.State())
	assert.Equal(t, 10, f.bookQty(t, physics.BookID))
}

func TestInsufficientStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.Admin())
	book := f.addBook(t, "Physics", "Academic", 3)

	_, err := f.svc.Lend(ctx, librarian, LendRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 20})
	require.ErrorIs(t, err, types.ErrInsufficientStock)
	var se *types.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Available)
	assert.Equal(t, 20, se.Requested)

	st := f.store(t)
	assert.Equal(t, 3, f.bookQty(t, book.BookID))
	clients, err := st.Clients.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients, "failed lend must not create the client")
	totals, err := st.Transactions.Totals(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Zero(t, totals.TotalLent)

	r, err := f.svc.Lend(ctx, librarian, LendRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 20, TakeAll: true})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Transaction.Quantity)
	assert.Equal(t, 0, r.Book.Quantity)

	_, err = f.svc.Lend(ctx, librarian, LendRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 1, TakeAll: true})
	assert.ErrorIs(t, err, types.ErrOutOfStock)
}

func TestLend_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		perms   access.Permissions
		req     LendRequest
		wantErr error
	}{
		{
			name:    "zero quantity",
			perms:   access.Admin(),
			req:     LendRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 0},
			wantErr: types.ErrInvalidInput,
		},
		{
			name:    "unknown book",
			perms:   access.Admin(),
			req:     LendRequest{Client: amara, Title: "Chemistry", Category: "Academic", Quantity: 1},
			wantErr: types.ErrNotFound,
		},
		{
			name:    "wrong category",
			perms:   access.Admin(),
			req:     LendRequest{Client: amara, Title: "Physics", Category: "Fiction", Quantity: 1},
			wantErr: types.ErrNotFound,
		},
		{
			name:    "unknown class",
			perms:   access.Admin(),
			req:     LendRequest{Client: types.ClientRef{FirstName: "A", LastName: "B", Class: "9Z", House: "KPH"}, Title: "Physics", Category: "Academic", Quantity: 1},
			wantErr: types.ErrInvalidInput,
		},
		{
			name:    "incomplete client",
			perms:   access.Admin(),
			req:     LendRequest{Client: types.ClientRef{FirstName: "A", Class: "10C1", House: "KPH"}, Title: "Physics", Category: "Academic", Quantity: 1},
			wantErr: types.ErrInvalidInput,
		},
		{
			name:    "permission denied",
			perms:   access.Permissions{access.RetrieveBook: access.Granted},
			req:     LendRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 1},
			wantErr: types.ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.perms)
			book := f.addBook(t, "Physics", "Academic", 5)
			_, err := f.svc.Lend(ctx, librarian, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 5, f.bookQty(t, book.BookID))
		})
	}
}

func TestRetrieve_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.Admin())
	f.addBook(t, "Physics", "Academic", 5)
	f.addBook(t, "Chemistry", "Academic", 5)
	f.lend(t, amara, "Physics", "Academic", 2)

	tests := []struct {
		name    string
		req     RetrieveRequest
		wantErr error
	}{
		{"unknown client", RetrieveRequest{Client: chipo, Title: "Physics", Category: "Academic", Quantity: 1}, types.ErrNotFound},
		{"unknown book", RetrieveRequest{Client: amara, Title: "Biology", Category: "Academic", Quantity: 1}, types.ErrNotFound},
		{"no loan for the book", RetrieveRequest{Client: amara, Title: "Chemistry", Category: "Academic", Quantity: 1}, types.ErrNotFound},
		{"more than owed", RetrieveRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 3}, types.ErrInvalidInput},
		{"zero quantity", RetrieveRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 0}, types.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Retrieve(ctx, librarian, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	r := f.retrieve(t, amara, "Physics", "Academic", 2)
	assert.Equal(t, 5, r.Book.Quantity)
	_, err := f.svc.Retrieve(ctx, librarian, RetrieveRequest{Client: amara, Title: "Physics", Category: "Academic", Quantity: 1})
	assert.ErrorIs(t, err, types.ErrInvalidInput, "a returned loan owes nothing")
}

// TestReplayInvariant runs a mixed sequence and checks after every step that
// each loan record equals the LEND minus RETRIEVE sum of its pair, that no
// stock went negative, and that the running dashboard matches a fresh load.
func TestReplayInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.Admin())
	books := []*types.Book{
		f.addBook(t, "Physics", "Academic", 6),
		f.addBook(t, "Dune", "Fiction", 2),
	}
	clients := []types.ClientRef{amara, chipo}

	_, err := f.svc.LoadDashboard(ctx)
	require.NoError(t, err)

	type step struct {
		lend   bool
		client types.ClientRef
		book   int
		qty    int
	}
	steps := []step{
		{true, amara, 0, 3},
		{true, chipo, 0, 2},
		{true, amara, 1, 2},
		{false, amara, 0, 1},
		{true, amara, 0, 1},
		{false, chipo, 0, 2},
		{false, amara, 1, 2},
		{true, chipo, 1, 1},
		{false, amara, 0, 3},
	}

	for i, s := range steps {
		b := books[s.book]
		if s.lend {
			f.lend(t, s.client, b.Title, b.Category, s.qty)
		} else {
			f.retrieve(t, s.client, b.Title, b.Category, s.qty)
		}

		st := f.store(t)
		for _, ref := range clients {
			c, err := st.Clients.FindByRef(ctx, ref)
			if errors.Is(err, types.ErrNotFound) {
				continue
			}
			require.NoError(t, err)
			for _, book := range books {
				balance, err := st.Transactions.PairBalance(ctx, c.ClientID, book.BookID)
				require.NoError(t, err)
				owed := 0
				loan, err := st.Loans.Get(ctx, c.ClientID, book.BookID)
				if err == nil {
					owed = loan.Quantity
					assert.Equal(t, owed == 0, loan.Returned, "step %d", i)
				} else {
					require.ErrorIs(t, err, types.ErrNotFound)
				}
				assert.Equal(t, balance, owed, "step %d: %s / %s", i, ref, book.Title)
				assert.GreaterOrEqual(t, owed, 0)
			}
		}
		for _, book := range books {
			assert.GreaterOrEqual(t, f.bookQty(t, book.BookID), 0)
		}

		running, err := f.svc.Dashboard(ctx)
		require.NoError(t, err)
		fresh, err := NewService(f.backend, access.Fixed(access.Admin()), WithClock(f.clock.now)).LoadDashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, fresh, running, "step %d", i)
	}

	final, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Dashboard{
		Day: "2026-03-02", TotalLent: 9, TotalRetrieved: 8,
		LentToday: 9, RetrievedToday: 8, Outstanding: 1,
	}, final)
}

func TestDashboard_DayRollover(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, access.Admin())
	f.addBook(t, "Physics", "Academic", 10)

	// Operations before the first load are picked up by it.
	f.lend(t, amara, "Physics", "Academic", 2)
	d, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.LentToday)
	assert.Equal(t, 2, d.Outstanding)

	f.clock.t = f.clock.t.Add(24 * time.Hour)
	d, err = f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", d.Day)
	assert.Zero(t, d.LentToday)
	assert.Equal(t, 2, d.TotalLent)

	f.retrieve(t, amara, "Physics", "Academic", 1)
	d, err = f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Dashboard{Day: "2026-03-03", TotalLent: 2, TotalRetrieved: 1, RetrievedToday: 1, Outstanding: 1}, d)

	fresh, err := f.svc.LoadDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, d, fresh)
}

func TestLend_RecordsNewClientOnce(t *testing.T) {
	f := newFixture(t, access.Admin())
	f.addBook(t, "Physics", "Academic", 10)

	first := f.lend(t, amara, "Physics", "Academic", 1)
	second := f.lend(t, types.ClientRef{FirstName: "amara", LastName: "MWANSA", Class: "10c1", House: "h3wc"}, "Physics", "Academic", 1)
	assert.Equal(t, first.Client.ClientID, second.Client.ClientID)
	assert.Equal(t, []string{"ADDED 'Amara Mwansa, 10C1, H3WC'"}, f.rec.actions)
}
