// Package memstore provides an in-memory implementation of alert.Store.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/linnemanlabs/opsgenix/internal/alert"
)

// Store holds alerts in memory. Suitable for dev/testing.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*alert.Alert
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{alerts: make(map[string]*alert.Alert)}
}

// List returns copies of the matching alerts, newest first.
func (s *Store) List(_ context.Context, f alert.Filter) ([]*alert.Alert, error) {
	s.mu.RLock()
	matched := make([]*alert.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		matched = append(matched, clone(a))
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *alert.Alert) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if f.Skip >= len(matched) {
		return []*alert.Alert{}, nil
	}
	matched = matched[f.Skip:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

// Get retrieves an alert by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*alert.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	return clone(a), true, nil
}

// Put stores a copy of the alert.
func (s *Store) Put(_ context.Context, a *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = clone(a)
	return nil
}

// Summary counts alerts by status and severity.
func (s *Store) Summary(_ context.Context) (*alert.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := alert.NewSummary()
	for _, a := range s.alerts {
		sum.TotalAlerts++
		sum.StatusBreakdown[a.Status]++
		sum.SeverityBreakdown[a.Severity]++
	}
	return sum, nil
}

func clone(a *alert.Alert) *alert.Alert {
	cp := *a
	if a.UpdatedAt != nil {
		t := *a.UpdatedAt
		cp.UpdatedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
