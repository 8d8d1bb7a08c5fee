package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// newAttachedBackend attaches a backend to a fresh temp directory.
func newAttachedBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	err := b.Attach(types.Config{
		DataDir: t.TempDir(),
		Classes: []string{"10c1", " 10C2 "},
		Houses:  []string{"h3wc"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Detach() })
	return b
}

func newStoreT(t *testing.T) *Store {
	t.Helper()
	s, err := newAttachedBackend(t).Store()
	require.NoError(t, err)
	return s
}

func TestBackendLifecycle(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend, dir string)
	}{
		{
			name: "attach creates database file",
			check: func(t *testing.T, b *Backend, dir string) {
				_, err := os.Stat(filepath.Join(dir, types.DefaultDBFile))
				assert.NoError(t, err)
			},
		},
		{
			name: "second attach fails",
			check: func(t *testing.T, b *Backend, dir string) {
				err := b.Attach(types.Config{DataDir: dir})
				assert.ErrorIs(t, err, types.ErrAlreadyAttached)
			},
		},
		{
			name: "detach is idempotent and blocks store access",
			check: func(t *testing.T, b *Backend, dir string) {
				require.NoError(t, b.Detach())
				require.NoError(t, b.Detach())
				_, err := b.Store()
				assert.ErrorIs(t, err, types.ErrDetached)
				err = b.InTx(context.Background(), func(*Store) error { return nil })
				assert.ErrorIs(t, err, types.ErrDetached)
			},
		},
		{
			name: "reattach keeps data",
			check: func(t *testing.T, b *Backend, dir string) {
				ctx := context.Background()
				s, err := b.Store()
				require.NoError(t, err)
				_, err = s.Books.Insert(ctx, &types.Book{Title: "Physics", Category: "Unknown", Quantity: 1})
				require.NoError(t, err)

				require.NoError(t, b.Detach())
				require.NoError(t, b.Attach(types.Config{DataDir: dir}))
				s, err = b.Store()
				require.NoError(t, err)
				books, err := s.Books.ByTitle(ctx, "Physics")
				require.NoError(t, err)
				assert.Len(t, books, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			b := NewBackend()
			require.NoError(t, b.Attach(types.Config{DataDir: dir}))
			t.Cleanup(func() { b.Detach() })
			tt.check(t, b, dir)
		})
	}
}

func TestAttachKeepsDataDirsApart(t *testing.T) {
	ctx := context.Background()
	first, second := NewBackend(), NewBackend()
	require.NoError(t, first.Attach(types.Config{DataDir: t.TempDir(), DBFile: "school.db"}))
	t.Cleanup(func() { first.Detach() })
	require.NoError(t, second.Attach(types.Config{DataDir: t.TempDir(), DBFile: "school.db"}))
	t.Cleanup(func() { second.Detach() })

	s, err := first.Store()
	require.NoError(t, err)
	_, err = s.Books.Insert(ctx, &types.Book{Title: "Physics", Category: "Unknown", Quantity: 1})
	require.NoError(t, err)

	s, err = second.Store()
	require.NoError(t, err)
	books, err := s.Books.ByTitle(ctx, "Physics")
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = os.Stat(first.Config().DatabasePath())
	assert.NoError(t, err)
	_, err = os.Stat("school.db")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{})
	assert.ErrorIs(t, err, types.ErrDataDirEmpty)
}

func TestSeedLookups(t *testing.T) {
	ctx := context.Background()
	s := newStoreT(t)

	cats, err := s.Categories.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Category{{Name: types.DefaultCategory}}, cats)

	classes, err := s.Classes.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10C1", "10C2"}, classes)

	houses, err := s.Houses.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"H3WC"}, houses)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	b := newAttachedBackend(t)
	boom := errors.New("boom")

	err := b.InTx(ctx, func(s *Store) error {
		if _, err := s.Books.Insert(ctx, &types.Book{Title: "Physics", Category: "Unknown", Quantity: 3}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	s, err := b.Store()
	require.NoError(t, err)
	books, err := s.Books.ByTitle(ctx, "Physics")
	require.NoError(t, err)
	assert.Empty(t, books)
}
