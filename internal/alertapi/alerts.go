package alertapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/opsgenix/internal/alert"
)

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := alert.Filter{
		Severity: alert.Severity(q.Get("severity")),
		Status:   alert.Status(q.Get("status")),
	}

	var err error
	if f.Skip, err = intParam(q.Get("skip")); err != nil {
		writeError(w, http.StatusBadRequest, "skip must be an integer")
		return
	}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	alerts, err := a.svc.List(r.Context(), f)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to list alerts")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (a *API) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alert.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	created, err := a.svc.Create(r.Context(), &req)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to create alert")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("opsgenix.alert.id", created.ID),
		attribute.Int("opsgenix.alert.priority_score", created.AIPriorityScore),
		attribute.String("opsgenix.triage.method", string(created.TriageMethod)),
	)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("opsgenix.alert.id", id))

	got, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get alert", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (a *API) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("opsgenix.alert.id", id))

	var req alert.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	updated, err := a.svc.Update(r.Context(), id, &req)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to update alert")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("opsgenix.alert.id", id))

	resolved, err := a.svc.Resolve(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to resolve alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Alert resolved successfully",
		"alert":   resolved,
	})
}

func (a *API) handlePredictResolution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("opsgenix.alert.id", id))

	est, err := a.svc.PredictResolution(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to predict resolution")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (a *API) handleAlertSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.svc.Summary(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err, "failed to summarize alerts")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// intParam parses an optional integer query parameter; empty yields 0.
func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
