package ledger

import (
	"context"
	"time"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Dashboard holds the running circulation counters. Outstanding is
// TotalLent minus TotalRetrieved. The Today counters cover Day only.
type Dashboard struct {
	Day            string `json:"day"`
	TotalLent      int    `json:"total_lent"`
	TotalRetrieved int    `json:"total_retrieved"`
	LentToday      int    `json:"lent_today"`
	RetrievedToday int    `json:"retrieved_today"`
	Outstanding    int    `json:"outstanding"`
}

// LoadDashboard recomputes the counters from the transaction log.
func (s *Service) LoadDashboard(ctx context.Context) (Dashboard, error) {
	st, err := s.storage.Store()
	if err != nil {
		return Dashboard{}, err
	}
	day := s.now().Format(types.DayLayout)
	totals, err := st.Transactions.Totals(ctx, day)
	if err != nil {
		return Dashboard{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dash = Dashboard{
		Day:            day,
		TotalLent:      totals.TotalLent,
		TotalRetrieved: totals.TotalRetrieved,
		LentToday:      totals.LentToday,
		RetrievedToday: totals.RetrievedToday,
		Outstanding:    totals.TotalLent - totals.TotalRetrieved,
	}
	s.loaded = true
	return s.dash, nil
}

// Dashboard returns the current counters, loading them on first use.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	s.mu.Lock()
	if s.loaded {
		s.rollover(s.now())
		d := s.dash
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()
	return s.LoadDashboard(ctx)
}

// apply adds a committed operation to the counters. Before the first load
// there is nothing to update; the load reads the committed row.
func (s *Service) apply(typ types.TxType, qty int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}
	s.rollover(at)
	switch typ {
	case types.TxLend:
		s.dash.TotalLent += qty
		s.dash.LentToday += qty
		s.dash.Outstanding += qty
	case types.TxRetrieve:
		s.dash.TotalRetrieved += qty
		s.dash.RetrievedToday += qty
		s.dash.Outstanding -= qty
	}
}

// rollover zeroes the today counters when the calendar day changed.
// The caller holds mu.
func (s *Service) rollover(now time.Time) {
	day := now.Format(types.DayLayout)
	if day == s.dash.Day {
		return
	}
	s.dash.Day = day
	s.dash.LentToday = 0
	s.dash.RetrievedToday = 0
}
