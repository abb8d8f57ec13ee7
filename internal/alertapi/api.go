// Package alertapi exposes the alert and triage operations over HTTP.
package alertapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/opsgenix/internal/alert"
	"github.com/linnemanlabs/opsgenix/internal/authmw"
	"github.com/linnemanlabs/opsgenix/internal/triage"
	"github.com/linnemanlabs/opsgenix/internal/triage/local"
)

// AlertService defines the business operations alertapi needs.
type AlertService interface {
	List(ctx context.Context, f alert.Filter) ([]*alert.Alert, error)
	Get(ctx context.Context, id string) (*alert.Alert, bool, error)
	Create(ctx context.Context, req *alert.CreateRequest) (*alert.Alert, error)
	Update(ctx context.Context, id string, req *alert.UpdateRequest) (*alert.Alert, error)
	Resolve(ctx context.Context, id string) (*alert.Alert, error)
	Summary(ctx context.Context) (*alert.Summary, error)
	PredictResolution(ctx context.Context, id string) (triage.ResolutionEstimate, error)
}

// Decider runs a triage decision without persisting anything.
type Decider interface {
	Decide(ctx context.Context, text triage.AlertText) triage.Result
	BackendName() string
}

// ModelAdmin inspects and retrains the local classifier.
type ModelAdmin interface {
	Info() (local.Info, bool)
	Retrain(ctx context.Context, samples []local.Sample) (local.TrainingSummary, error)
}

// Options holds the optional collaborators of API.
type Options struct {
	// Model is nil when the local backend is disabled.
	Model ModelAdmin

	// AdminToken guards the model endpoints. Empty rejects every request.
	AdminToken string
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger     log.Logger
	svc        AlertService
	decider    Decider
	model      ModelAdmin
	adminToken string
}

// New creates a new API handler.
func New(logger log.Logger, svc AlertService, decider Decider, opts Options) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("alert service is required"))
	}
	if decider == nil {
		panic(xerrors.New("triage decider is required"))
	}
	return &API{
		logger:     logger,
		svc:        svc,
		decider:    decider,
		model:      opts.Model,
		adminToken: opts.AdminToken,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", a.handleListAlerts)
			r.Post("/", a.handleCreateAlert)
			r.Get("/analytics/summary", a.handleAlertSummary)
			r.Get("/{id}", a.handleGetAlert)
			r.Put("/{id}", a.handleUpdateAlert)
			r.Post("/{id}/resolve", a.handleResolveAlert)
			r.Get("/{id}/resolution", a.handlePredictResolution)
		})

		r.Get("/dashboard/summary", a.handleDashboardSummary)

		r.Get("/patches", a.handleListPatches)
		r.Post("/patches/{id}/deploy", a.handleDeployPatch)
		r.Get("/workflows", a.handleListWorkflows)
		r.Post("/workflows", a.handleCreateWorkflow)
		r.Get("/integrations", a.handleListIntegrations)

		r.Route("/triage", func(r chi.Router) {
			r.Post("/score", a.handleScore)
			r.Group(func(r chi.Router) {
				r.Use(authmw.BearerToken(a.adminToken))
				r.Get("/model", a.handleModelInfo)
				r.Post("/model/train", a.handleTrainModel)
			})
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps service errors onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var ve *alert.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, alert.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	default:
		a.logger.Error(r.Context(), err, msg)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
