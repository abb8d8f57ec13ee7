package alert

import "context"

// Store persists alerts. Implementations return copies; callers may mutate
// what they get back without affecting stored state.
type Store interface {
	List(ctx context.Context, f Filter) ([]*Alert, error)
	Get(ctx context.Context, id string) (*Alert, bool, error)
	Put(ctx context.Context, a *Alert) error
	Summary(ctx context.Context) (*Summary, error)
}

// NewSummary returns a Summary with every status and severity present at zero.
func NewSummary() *Summary {
	s := &Summary{
		StatusBreakdown:   make(map[Status]int, len(Statuses)),
		SeverityBreakdown: make(map[Severity]int, len(Severities)),
	}
	for _, st := range Statuses {
		s.StatusBreakdown[st] = 0
	}
	for _, sev := range Severities {
		s.SeverityBreakdown[sev] = 0
	}
	return s
}
