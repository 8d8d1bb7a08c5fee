// Package accounts manages operator users: creation, deletion, password and
// user name changes, and sign-in.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/history"
	"github.com/mesh-intelligence/librarian/internal/logging"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/internal/validation"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Default administrator created on an empty database.
const (
	AdminUserName = "admin"
	AdminPassword = "admin"
	adminName     = "Administrator"
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

// Service manages operator accounts.
type Service struct {
	storage  Storage
	auth     access.Authorizer
	recorder Recorder
	logger   logging.Logger
	cost     int
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

// WithCost sets the bcrypt cost. Values outside bcrypt's range are ignored.
func WithCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// NewService creates the account manager over storage.
func NewService(storage Storage, auth access.Authorizer, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		auth:     auth,
		recorder: nopRecorder{},
		logger:   logging.Discard(),
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes a new operator.
type CreateRequest struct {
	UserName string `validate:"required,max=64"`
	Name     string `validate:"required"`
	Password string `validate:"required"`
}

// Create adds an operator with the standard permission preset.
func (s *Service) Create(ctx context.Context, actor types.Actor, req CreateRequest) (*types.User, error) {
	if err := s.auth.Require(ctx, actor, access.CreateUserTab); err != nil {
		return nil, err
	}
	req.UserName = strings.TrimSpace(req.UserName)
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	u, err := s.insert(ctx, req, access.Standard())
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user", u.UserName, "by", actor.UserName)
	s.recorder.Record(ctx, actor, history.UserAdded(*u), types.TableUsers)
	s.recorder.Record(ctx, actor, history.PresetGiven(u.UserName, "Standard"), types.TablePermissions)
	return u, nil
}

func (s *Service) insert(ctx context.Context, req CreateRequest, p access.Permissions) (*types.User, error) {
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	u := &types.User{UserName: req.UserName, Name: req.Name, PasswordHash: hash}
	err = s.storage.InTx(ctx, func(st *sqlite.Store) error {
		if _, err := st.Users.Insert(ctx, u); err != nil {
			return err
		}
		return access.Save(ctx, st, u.UserID, p)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates the default administrator when no user exists. It
// reports whether one was created.
func (s *Service) EnsureAdmin(ctx context.Context) (bool, error) {
	st, err := s.storage.Store()
	if err != nil {
		return false, err
	}
	n, err := st.Users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.insert(ctx, CreateRequest{UserName: AdminUserName, Name: adminName, Password: AdminPassword}, access.Admin()); err != nil {
		return false, fmt.Errorf("seeding administrator: %w", err)
	}
	s.logger.Warn("created default administrator; change its password", "user", AdminUserName)
	return true, nil
}

// Delete removes an operator. Operators cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor types.Actor, userName string) error {
	if err := s.auth.Require(ctx, actor, access.DeleteUser); err != nil {
		return err
	}
	userName = strings.TrimSpace(userName)
	if userName == actor.UserName {
		return types.InvalidInputf("cannot delete the signed-in user %q", userName)
	}
	err := s.storage.InTx(ctx, func(st *sqlite.Store) error {
		u, err := st.Users.GetByName(ctx, userName)
		if err != nil {
			return err
		}
		return st.Users.Delete(ctx, u.UserID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", "user", userName, "by", actor.UserName)
	s.recorder.Record(ctx, actor, history.Deleted(userName), types.TableUsers)
	return nil
}

// ChangePassword replaces the actor's own password after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, actor types.Actor, current, next string) error {
	if next == "" {
		return types.InvalidInputf("new password is required")
	}
	st, err := s.storage.Store()
	if err != nil {
		return err
	}
	u, err := st.Users.Get(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("current password: %w", types.ErrInvalidCredentials)
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := st.Users.SetPasswordHash(ctx, u.UserID, hash); err != nil {
		return err
	}
	s.recorder.Record(ctx, actor, history.PasswordChanged(u.UserName), types.TableUsers)
	return nil
}

// ChangeUsername renames the actor and returns the updated actor.
func (s *Service) ChangeUsername(ctx context.Context, actor types.Actor, userName string) (types.Actor, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return actor, types.InvalidInputf("user name is required")
	}
	if userName == actor.UserName {
		return actor, fmt.Errorf("user name %q: %w", userName, types.ErrNoChange)
	}
	st, err := s.storage.Store()
	if err != nil {
		return actor, err
	}
	if err := st.Users.Rename(ctx, actor.UserID, userName); err != nil {
		return actor, err
	}
	renamed := types.Actor{UserID: actor.UserID, UserName: userName}
	s.recorder.Record(ctx, renamed, history.Renamed(actor.UserName, userName), types.TableUsers)
	return renamed, nil
}

// Authenticate checks a user name and password. Unknown users and wrong
// passwords both fail with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, userName, password string) (types.Actor, error) {
	st, err := s.storage.Store()
	if err != nil {
		return types.Actor{}, err
	}
	u, err := st.Users.GetByName(ctx, strings.TrimSpace(userName))
	if errors.Is(err, types.ErrNotFound) {
		return types.Actor{}, fmt.Errorf("user %q: %w", userName, types.ErrInvalidCredentials)
	}
	if err != nil {
		return types.Actor{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return types.Actor{}, fmt.Errorf("user %q: %w", userName, types.ErrInvalidCredentials)
	}
	return types.Actor{UserID: u.UserID, UserName: u.UserName}, nil
}

// List returns every operator. Password hashes are cleared.
func (s *Service) List(ctx context.Context) ([]types.User, error) {
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	users, err := st.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, types.Actor, string, string) {}
