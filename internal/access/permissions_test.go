package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func TestPresets(t *testing.T) {
	require.Len(t, Actions, 24)
	require.Len(t, standardLevels, len(Actions))

	admin := Admin()
	for _, a := range Actions {
		assert.Equal(t, Granted, admin[a], a)
	}
	assert.NoError(t, admin.Validate())

	std := Standard()
	assert.NoError(t, std.Validate())
	assert.True(t, std.Allows(LendBookTab))
	assert.True(t, std.Allows(BooksTab), "partial allows")
	assert.False(t, std.Allows(EditBook))
	assert.False(t, std.Allows(DeleteBook))
	assert.False(t, std.Allows(PermissionsTab))
	assert.Equal(t, Partial, std[HistoryTab])
}

func TestPermissionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Permissions
		wantErr bool
	}{
		{"partial on parent", Permissions{SettingsTab: Partial}, false},
		{"partial on child", Permissions{EditBook: Partial}, true},
		{"partial on leaf tab", Permissions{DashboardTab: Partial}, true},
		{"unknown action", Permissions{Action("fly"): Granted}, true},
		{"level out of range", Permissions{BooksTab: Level(3)}, true},
		{"empty", Permissions{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParse(t *testing.T) {
	a, err := ParseAction(" Edit_Book ")
	require.NoError(t, err)
	assert.Equal(t, EditBook, a)

	_, err = ParseAction("launch")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	l, err := ParseLevel("partial")
	require.NoError(t, err)
	assert.Equal(t, Partial, l)
	l, err = ParseLevel("2")
	require.NoError(t, err)
	assert.Equal(t, Granted, l)

	_, err = Preset("guest")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

type recorded struct {
	actor  types.Actor
	action string
}

type fakeRecorder struct{ entries []recorded }

func (f *fakeRecorder) Record(_ context.Context, actor types.Actor, action, _ string) {
	f.entries = append(f.entries, recorded{actor, action})
}

func newService(t *testing.T) (*Service, *sqlite.Backend, *fakeRecorder) {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	rec := &fakeRecorder{}
	return NewService(b, WithRecorder(rec)), b, rec
}

func addUser(t *testing.T, b *sqlite.Backend, name string, p Permissions) types.Actor {
	t.Helper()
	ctx := context.Background()
	var actor types.Actor
	err := b.InTx(ctx, func(st *sqlite.Store) error {
		id, err := st.Users.Insert(ctx, &types.User{UserName: name, Name: name, PasswordHash: "h"})
		if err != nil {
			return err
		}
		actor = types.Actor{UserID: id, UserName: name}
		return Save(ctx, st, id, p)
	})
	require.NoError(t, err)
	return actor
}

func TestServiceRequire(t *testing.T) {
	ctx := context.Background()
	svc, b, _ := newService(t)
	clerk := addUser(t, b, "clerk", Standard())

	assert.NoError(t, svc.Require(ctx, clerk, LendBookTab))
	assert.ErrorIs(t, svc.Require(ctx, clerk, DeleteBook), types.ErrPermissionDenied)

	ok, err := svc.CheckPermission(ctx, clerk.UserID, IssueBookTab)
	require.NoError(t, err)
	assert.True(t, ok)

	stranger := types.Actor{UserID: "nobody", UserName: "nobody"}
	assert.ErrorIs(t, svc.Require(ctx, stranger, DashboardTab), types.ErrPermissionDenied)
}

func TestServiceGrant(t *testing.T) {
	ctx := context.Background()
	svc, b, rec := newService(t)
	admin := addUser(t, b, "admin", Admin())
	clerk := addUser(t, b, "clerk", Standard())

	err := svc.Grant(ctx, clerk, "admin", Standard())
	assert.ErrorIs(t, err, types.ErrPermissionDenied)

	err = svc.Grant(ctx, admin, "clerk", Permissions{EditBook: Partial})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	err = svc.Grant(ctx, admin, "ghost", Admin())
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, svc.Grant(ctx, admin, "clerk", Admin()))
	p, err := svc.Permissions(ctx, clerk.UserID)
	require.NoError(t, err)
	assert.Equal(t, Admin(), p)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "EDITED 'clerk' permissions.", rec.entries[0].action)
	assert.Equal(t, "admin", rec.entries[0].actor.UserName)
}

func TestFixed(t *testing.T) {
	f := Fixed(Standard())
	actor := types.Actor{UserID: "u", UserName: "clerk"}
	assert.NoError(t, f.Require(context.Background(), actor, AddBookTab))
	assert.ErrorIs(t, f.Require(context.Background(), actor, DeleteUser), types.ErrPermissionDenied)
}
