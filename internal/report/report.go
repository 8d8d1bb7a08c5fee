// Package report lists transactions and builds per-day circulation series.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// maxSeriesDays bounds the length of a DailySeries range.
const maxSeriesDays = 3660

// Storage opens table accessors.
type Storage interface {
	Store() (*sqlite.Store, error)
}

// Point is the LEND and RETRIEVE total of one calendar day.
type Point struct {
	Day       string `json:"day"`
	Lent      int    `json:"lent"`
	Retrieved int    `json:"retrieved"`
}

// Service answers reporting queries.
type Service struct {
	storage Storage
}

// NewService creates a report service over storage.
func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// DailySeries returns one point per day from from to to inclusive. Days
// without transactions are zero.
func (s *Service) DailySeries(ctx context.Context, from, to time.Time) ([]Point, error) {
	from = midnight(from)
	to = midnight(to)
	if to.Before(from) {
		return nil, types.InvalidInputf("range ends %s before it starts %s",
			to.Format(types.DayLayout), from.Format(types.DayLayout))
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxSeriesDays {
		return nil, types.InvalidInputf("range of %d days exceeds %d", days, maxSeriesDays)
	}

	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	totals, err := st.Transactions.DailyTotals(ctx, from.Format(types.DayLayout), to.Format(types.DayLayout))
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]sqlite.DayTotal, len(totals))
	for _, t := range totals {
		byDay[t.Day] = t
	}

	var series []Point
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := d.Format(types.DayLayout)
		t := byDay[day]
		series = append(series, Point{Day: day, Lent: t.Lent, Retrieved: t.Retrieved})
	}
	return series, nil
}

// ParseRange parses two YYYY-MM-DD days in loc.
func ParseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	f, err := time.ParseInLocation(types.DayLayout, from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, types.InvalidInputf("from %q: want %s", from, types.DayLayout)
	}
	t, err := time.ParseInLocation(types.DayLayout, to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, types.InvalidInputf("to %q: want %s", to, types.DayLayout)
	}
	return f, t, nil
}

// Transactions lists the log joined with user, book, and client names,
// newest first.
func (s *Service) Transactions(ctx context.Context, filter sqlite.TxFilter) ([]types.TransactionView, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, types.InvalidInputf("unknown transaction type %q", filter.Type)
	}
	if filter.Day != "" {
		if _, err := time.Parse(types.DayLayout, filter.Day); err != nil {
			return nil, types.InvalidInputf("day %q: want %s", filter.Day, types.DayLayout)
		}
	}
	st, err := s.storage.Store()
	if err != nil {
		return nil, err
	}
	views, err := st.Transactions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reporting transactions: %w", err)
	}
	return views, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
