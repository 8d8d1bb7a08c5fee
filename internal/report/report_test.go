package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

type seeded struct {
	svc    *Service
	userID string
}

// newSeeded attaches a database holding lends and retrieves on 2026-03-02
// and 2026-03-04.
func newSeeded(t *testing.T) *seeded {
	t.Helper()
	ctx := context.Background()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })

	st, err := b.Store()
	require.NoError(t, err)
	userID, err := st.Users.Insert(ctx, &types.User{UserName: "desk", Name: "Desk", PasswordHash: "x"})
	require.NoError(t, err)
	bookID, err := st.Books.Insert(ctx, &types.Book{Title: "Physics", Category: types.DefaultCategory, Quantity: 10})
	require.NoError(t, err)
	clientID, err := st.Clients.Insert(ctx, &types.Client{FirstName: "Amara", LastName: "Mwansa", Class: "10C1", House: "H3WC"})
	require.NoError(t, err)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i, tx := range []struct {
		typ  types.TxType
		qty  int
		days int
	}{
		{types.TxLend, 3, 0},
		{types.TxLend, 2, 0},
		{types.TxRetrieve, 1, 0},
		{types.TxRetrieve, 4, 2},
	} {
		at := base.AddDate(0, 0, tx.days).Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.Transactions.Append(ctx, &types.Transaction{
			ClientID: clientID, BookID: bookID, Quantity: tx.qty, Type: tx.typ,
			UserID: userID, OccurredAt: at, Day: at.Format(types.DayLayout),
		}))
	}
	return &seeded{svc: NewService(b), userID: userID}
}

func TestDailySeries(t *testing.T) {
	ctx := context.Background()
	s := newSeeded(t)

	from, to, err := ParseRange("2026-03-01", "2026-03-05", time.UTC)
	require.NoError(t, err)
	series, err := s.svc.DailySeries(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{Day: "2026-03-01"},
		{Day: "2026-03-02", Lent: 5, Retrieved: 1},
		{Day: "2026-03-03"},
		{Day: "2026-03-04", Retrieved: 4},
		{Day: "2026-03-05"},
	}, series)

	one, err := s.svc.DailySeries(ctx, to, to)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = s.svc.DailySeries(ctx, to, from)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, _, err = ParseRange("2026-3-1", "2026-03-05", time.UTC)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	s := newSeeded(t)

	tests := []struct {
		name   string
		filter sqlite.TxFilter
		want   []int
	}{
		{"all newest first", sqlite.TxFilter{}, []int{4, 1, 2, 3}},
		{"lends only", sqlite.TxFilter{Type: types.TxLend}, []int{2, 3}},
		{"one day", sqlite.TxFilter{Day: "2026-03-04"}, []int{4}},
		{"by user with limit", sqlite.TxFilter{UserName: "desk", Limit: 2}, []int{4, 1}},
		{"other user", sqlite.TxFilter{UserName: "nobody"}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := s.svc.Transactions(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]int, len(views))
			for i, v := range views {
				got[i] = v.Quantity
				assert.Equal(t, "desk", v.User)
				assert.Equal(t, "Physics, Unknown", v.Book)
				assert.Equal(t, "Amara Mwansa", v.Client)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.svc.Transactions(ctx, sqlite.TxFilter{Type: "BORROW"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.svc.Transactions(ctx, sqlite.TxFilter{Day: "yesterday"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
