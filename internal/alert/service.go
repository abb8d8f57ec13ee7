package alert

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// List paging limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ErrNotFound is returned when an alert ID does not exist.
var ErrNotFound = errors.New("alert not found")

// ValidationError reports invalid caller input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Err.Error() }

// Unwrap returns the underlying validation failure.
func (e *ValidationError) Unwrap() error { return e.Err }

// Decider triages alert text. *triage.Engine satisfies it.
type Decider interface {
	Decide(ctx context.Context, text triage.AlertText) triage.Result
}

// Notifier delivers a high-priority alert to humans.
type Notifier interface {
	Notify(ctx context.Context, a *Alert) error
}

// ResolutionPredictor estimates how long an alert will take to resolve.
type ResolutionPredictor interface {
	PredictResolution(ctx context.Context, alert map[string]any) (triage.ResolutionEstimate, error)
}

// ServiceConfig holds the optional collaborators of Service.
type ServiceConfig struct {
	Notifier          Notifier
	NotifyMinPriority int
	Predictor         ResolutionPredictor
	Logger            log.Logger
}

// Service is the business boundary for alert operations.
type Service struct {
	store     Store
	decider   Decider
	notifier  Notifier
	minNotify int
	predictor ResolutionPredictor
	validate  *validator.Validate
	logger    log.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewService creates a new alert service.
func NewService(store Store, decider Decider, c ServiceConfig) *Service {
	logger := c.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:     store,
		decider:   decider,
		notifier:  c.Notifier,
		minNotify: c.NotifyMinPriority,
		predictor: c.Predictor,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		now:       time.Now,
	}
}

// List returns a page of alerts, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Alert, error) {
	if f.Skip < 0 {
		return nil, &ValidationError{Err: fmt.Errorf("skip %d must be >= 0", f.Skip)}
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		return nil, &ValidationError{Err: fmt.Errorf("limit %d must be 1..%d", f.Limit, MaxLimit)}
	}
	if f.Severity != "" && !validSeverity(f.Severity) {
		return nil, &ValidationError{Err: fmt.Errorf("unknown severity %q", f.Severity)}
	}
	if f.Status != "" && !validStatus(f.Status) {
		return nil, &ValidationError{Err: fmt.Errorf("unknown status %q", f.Status)}
	}
	return s.store.List(ctx, f)
}

// Get retrieves an alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*Alert, bool, error) {
	return s.store.Get(ctx, id)
}

// Create triages and persists a new alert. High-priority alerts are
// announced asynchronously; notification failures are only logged.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Alert, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Err: err}
	}

	a := &Alert{
		ID:           ulid.Make().String(),
		Title:        req.Title,
		Description:  req.Description,
		Severity:     req.Severity,
		Status:       StatusOpen,
		SourceSystem: req.SourceSystem,
		SourceID:     req.SourceID,
		CreatedAt:    s.now().UTC(),
	}
	if a.Severity == "" {
		a.Severity = SeverityMedium
	}

	res := s.decider.Decide(ctx, a.Text())
	a.AIPriorityScore = res.PriorityScore
	a.AIClassification = res.Classification
	a.SuggestedAction = res.SuggestedAction
	a.TriageMethod = res.Method

	if err := s.store.Put(ctx, a); err != nil {
		return nil, err
	}

	L := s.logger.With("alert_id", a.ID)
	L.Info(ctx, "alert created",
		"severity", a.Severity,
		"priority_score", a.AIPriorityScore,
		"classification", a.AIClassification,
		"triage_method", a.TriageMethod,
	)

	if s.notifier != nil && a.AIPriorityScore >= s.minNotify {
		cp := *a
		nctx := context.WithoutCancel(ctx)
		s.wg.Go(func() { s.notify(nctx, &cp) })
	}
	return a, nil
}

// Update applies a partial update. Moving to resolved stamps ResolvedAt.
func (s *Service) Update(ctx context.Context, id string, req *UpdateRequest) (*Alert, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Err: err}
	}

	a, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	now := s.now().UTC()
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Severity != nil {
		a.Severity = *req.Severity
	}
	if req.AssignedTo != nil {
		a.AssignedTo = *req.AssignedTo
	}
	if req.Status != nil {
		if *req.Status == StatusResolved && a.Status != StatusResolved {
			a.ResolvedAt = &now
		}
		a.Status = *req.Status
	}
	a.UpdatedAt = &now

	if err := s.store.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Resolve marks an alert resolved.
func (s *Service) Resolve(ctx context.Context, id string) (*Alert, error) {
	a, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	now := s.now().UTC()
	a.Status = StatusResolved
	a.ResolvedAt = &now
	a.UpdatedAt = &now

	if err := s.store.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Summary returns alert counts by status and severity.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return s.store.Summary(ctx)
}

// PredictResolution estimates resolution time for an alert. Without a
// predictor, or when prediction fails, the fallback estimate is returned.
func (s *Service) PredictResolution(ctx context.Context, id string) (triage.ResolutionEstimate, error) {
	a, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return triage.ResolutionEstimate{}, err
	}
	if !ok {
		return triage.ResolutionEstimate{}, ErrNotFound
	}
	if s.predictor == nil {
		return triage.FallbackResolution(), nil
	}

	est, err := s.predictor.PredictResolution(ctx, map[string]any{
		"title":          a.Title,
		"description":    a.Description,
		"severity":       a.Severity,
		"status":         a.Status,
		"source_system":  a.SourceSystem,
		"classification": a.AIClassification,
		"priority_score": a.AIPriorityScore,
		"created_at":     a.CreatedAt,
	})
	if err != nil && !errors.Is(err, triage.ErrBackendUnavailable) {
		s.logger.Warn(ctx, "resolution prediction failed", "alert_id", id, "error", err.Error())
	}
	return est, nil
}

// WaitNotifications blocks until in-flight notifications started by Create
// have finished or ctx is done. Used during shutdown and in tests.
func (s *Service) WaitNotifications(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Service) notify(ctx context.Context, a *Alert) {
	if err := s.notifier.Notify(ctx, a); err != nil {
		s.logger.Error(ctx, err, "alert notification failed", "alert_id", a.ID)
	}
}

func validSeverity(s Severity) bool { return slices.Contains(Severities, s) }

func validStatus(s Status) bool { return slices.Contains(Statuses, s) }
