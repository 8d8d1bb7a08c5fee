package access

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/librarian/internal/history"
	"github.com/mesh-intelligence/librarian/internal/logging"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Storage opens table accessors and transactions.
type Storage interface {
	Store() (*sqlite.Store, error)
	InTx(ctx context.Context, fn func(*sqlite.Store) error) error
}

// Recorder receives audit entries after a change commits.
type Recorder interface {
	Record(ctx context.Context, actor types.Actor, action, table string)
}

// Authorizer gates an operation on the actor's permissions.
type Authorizer interface {
	Require(ctx context.Context, actor types.Actor, a Action) error
}

var _ Authorizer = (*Service)(nil)

// Service checks and grants stored permissions.
type Service struct {
	storage  Storage
	recorder Recorder
	logger   logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the audit recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a Service over storage.
func NewService(storage Storage, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		recorder: nopRecorder{},
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Permissions returns the stored levels of a user.
func (s *Service) Permissions(ctx context.Context, userID string) (Permissions, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	return Load(ctx, st, userID)
}

// CheckPermission reports whether the user may perform a.
func (s *Service) CheckPermission(ctx context.Context, userID string, a Action) (bool, error) {
	p, err := s.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.Allows(a), nil
}

// Require returns ErrPermissionDenied unless actor may perform a.
func (s *Service) Require(ctx context.Context, actor types.Actor, a Action) error {
	ok, err := s.CheckPermission(ctx, actor.UserID, a)
	if err != nil {
		return fmt.Errorf("checking permission %s: %w", a, err)
	}
	if !ok {
		s.logger.Info("permission denied", "user", actor.UserName, "action", string(a))
		return fmt.Errorf("%s may not %s: %w", actor.UserName, a, types.ErrPermissionDenied)
	}
	return nil
}

// Grant replaces the permissions of the named user. The actor needs
// permissions_tab.
func (s *Service) Grant(ctx context.Context, actor types.Actor, userName string, p Permissions) error {
	if err := s.Require(ctx, actor, PermissionsTab); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	err := s.storage.InTx(ctx, func(st *sqlite.Store) error {
		u, err := st.Users.GetByName(ctx, userName)
		if err != nil {
			return err
		}
		return Save(ctx, st, u.UserID, p)
	})
	if err != nil {
		return err
	}

	s.logger.Info("permissions granted", "user", userName, "by", actor.UserName)
	s.recorder.Record(ctx, actor, history.PermissionsEdited(userName), types.TablePermissions)
	return nil
}

// Load reads the permissions of a user through st.
func Load(ctx context.Context, st *sqlite.Store, userID string) (Permissions, error) {
	levels, err := st.Permissions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return fromStored(levels), nil
}

// Save validates p and stores it for a user through st.
func Save(ctx context.Context, st *sqlite.Store, userID string, p Permissions) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return st.Permissions.Set(ctx, userID, p.toStored())
}

// Fixed is an Authorizer over permissions resolved up front.
type Fixed Permissions

// Require returns ErrPermissionDenied unless the fixed permissions allow a.
func (f Fixed) Require(_ context.Context, actor types.Actor, a Action) error {
	if !Permissions(f).Allows(a) {
		return fmt.Errorf("%s may not %s: %w", actor.UserName, a, types.ErrPermissionDenied)
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, types.Actor, string, string) {}
