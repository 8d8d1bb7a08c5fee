// Package history records administrative actions in the audit log.
// Recording is fire-and-forget: a failed write is logged and never reaches
// the operation that triggered it.
package history

import (
	"context"
	"time"

	"github.com/mesh-intelligence/librarian/internal/logging"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Storage opens the table accessors outside any transaction.
type Storage interface {
	Store() (*sqlite.Store, error)
}

// Recorder appends audit entries.
type Recorder struct {
	storage Storage
	logger  logging.Logger
	now     func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger that receives failed writes.
func WithLogger(logger logging.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the clock stamped on entries.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates a Recorder over storage.
func NewRecorder(storage Storage, opts ...Option) *Recorder {
	r := &Recorder{
		storage: storage,
		logger:  logging.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry for actor. table may be empty.
func (r *Recorder) Record(ctx context.Context, actor types.Actor, action, table string) {
	entry := &types.HistoryEntry{
		UserName:   actor.UserName,
		Action:     action,
		Table:      table,
		RecordedAt: r.now(),
	}
	s, err := r.storage.Store()
	if err == nil {
		err = s.History.Append(ctx, entry)
	}
	if err != nil {
		r.logger.Warn("history record failed", "user", actor.UserName, "action", action, "err", err)
		return
	}
	r.logger.Debug("history recorded", "user", actor.UserName, "action", action)
}

// List returns the newest entries first. A zero limit returns everything.
func (r *Recorder) List(ctx context.Context, filter sqlite.HistoryFilter) ([]types.HistoryEntry, error) {
	s, err := r.storage.Store()
	if err != nil {
		return nil, err
	}
	return s.History.List(ctx, filter)
}
