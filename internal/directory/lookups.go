package directory

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/history"
	"github.com/mesh-intelligence/librarian/internal/normalize"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// lookup binds one name list to the actions that gate it.
type lookup struct {
	table       func(*sqlite.Store) *sqlite.LookupTable
	add, del    access.Action
	rename      access.Action
	ownedFilter func(name string) sqlite.OwedFilter
}

var (
	classes = lookup{
		table:       func(st *sqlite.Store) *sqlite.LookupTable { return st.Classes },
		add:         access.AddClass,
		del:         access.DeleteClass,
		rename:      access.ChangeClassName,
		ownedFilter: func(name string) sqlite.OwedFilter { return sqlite.OwedFilter{Class: name} },
	}
	houses = lookup{
		table:       func(st *sqlite.Store) *sqlite.LookupTable { return st.Houses },
		add:         access.AddHouse,
		del:         access.DeleteHouse,
		rename:      access.ChangeHouseName,
		ownedFilter: func(name string) sqlite.OwedFilter { return sqlite.OwedFilter{House: name} },
	}
)

// AddClass adds a class name.
func (s *Service) AddClass(ctx context.Context, actor types.Actor, name string) (string, error) {
	return s.addLookup(ctx, actor, classes, name)
}

// DeleteClass removes a class. It is blocked while any client of the class
// owes books.
func (s *Service) DeleteClass(ctx context.Context, actor types.Actor, name string) error {
	return s.deleteLookup(ctx, actor, classes, name)
}

// RenameClass renames a class and moves its clients along.
func (s *Service) RenameClass(ctx context.Context, actor types.Actor, from, to string) error {
	return s.renameLookup(ctx, actor, classes, from, to)
}

// ListClasses returns every class name.
func (s *Service) ListClasses(ctx context.Context) ([]string, error) {
	return s.listLookup(ctx, classes)
}

// AddHouse adds a house name.
func (s *Service) AddHouse(ctx context.Context, actor types.Actor, name string) (string, error) {
	return s.addLookup(ctx, actor, houses, name)
}

// DeleteHouse removes a house. It is blocked while any client of the house
// owes books.
func (s *Service) DeleteHouse(ctx context.Context, actor types.Actor, name string) error {
	return s.deleteLookup(ctx, actor, houses, name)
}

// RenameHouse renames a house and moves its clients along.
func (s *Service) RenameHouse(ctx context.Context, actor types.Actor, from, to string) error {
	return s.renameLookup(ctx, actor, houses, from, to)
}

// ListHouses returns every house name.
func (s *Service) ListHouses(ctx context.Context) ([]string, error) {
	return s.listLookup(ctx, houses)
}

func (s *Service) addLookup(ctx context.Context, actor types.Actor, l lookup, name string) (string, error) {
	if err := s.auth.Require(ctx, actor, l.add); err != nil {
		return "", err
	}
	name = normalize.Upper(name)
	if name == "" {
		return "", types.InvalidInputf("name is required")
	}
	st, err := s.storage.Store()
	if err != nil {
		return "", err
	}
	table := l.table(st)
	if err := table.Insert(ctx, name); err != nil {
		return "", err
	}
	s.recorder.Record(ctx, actor, history.Added(name), table.Name())
	return name, nil
}

func (s *Service) deleteLookup(ctx context.Context, actor types.Actor, l lookup, name string) error {
	if err := s.auth.Require(ctx, actor, l.del); err != nil {
		return err
	}
	name = normalize.Upper(name)
	var tableName string
	err := s.storage.InTx(ctx, func(st *sqlite.Store) error {
		table := l.table(st)
		tableName = table.Name()
		owing, err := st.Loans.OwingClients(ctx, l.ownedFilter(name))
		if err != nil {
			return err
		}
		if len(owing) > 0 {
			names := make([]string, len(owing))
			for i, ref := range owing {
				names[i] = ref.String()
			}
			return &types.OutstandingLoansError{Subject: fmt.Sprintf("%s %s", table.ClientColumn(), name), Owing: names}
		}
		return table.Delete(ctx, name)
	})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, actor, history.Deleted(name), tableName)
	return nil
}

func (s *Service) renameLookup(ctx context.Context, actor types.Actor, l lookup, from, to string) error {
	if err := s.auth.Require(ctx, actor, l.rename); err != nil {
		return err
	}
	from, to = normalize.Upper(from), normalize.Upper(to)
	if from == "" || to == "" {
		return types.InvalidInputf("current and new names are required")
	}
	if from == to {
		return fmt.Errorf("%s: %w", from, types.ErrNoChange)
	}

	var tableName string
	var moved int64
	err := s.storage.InTx(ctx, func(st *sqlite.Store) error {
		table := l.table(st)
		tableName = table.Name()
		if err := table.Rename(ctx, from, to); err != nil {
			return err
		}
		var err error
		moved, err = st.Clients.Reassign(ctx, table.ClientColumn(), from, to)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("renamed", "table", tableName, "from", from, "to", to, "clients", moved)
	s.recorder.Record(ctx, actor, history.Renamed(from, to), tableName)
	return nil
}

func (s *Service) listLookup(ctx context.Context, l lookup) ([]string, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return l.table(st).List(ctx)
}
