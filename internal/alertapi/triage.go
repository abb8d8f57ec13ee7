package alertapi

import (
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/opsgenix/internal/triage"
	"github.com/linnemanlabs/opsgenix/internal/triage/local"
)

type scoreResponse struct {
	triage.Result
	Backend string `json:"backend"`
}

func (a *API) handleScore(w http.ResponseWriter, r *http.Request) {
	var text triage.AlertText
	if err := decodeJSON(r, &text); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(text.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	res := a.decider.Decide(r.Context(), text)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("opsgenix.alert.priority_score", res.PriorityScore),
		attribute.String("opsgenix.triage.method", string(res.Method)),
	)
	writeJSON(w, http.StatusOK, scoreResponse{Result: res, Backend: a.decider.BackendName()})
}

type modelInfoResponse struct {
	local.Info
	Backend string `json:"active_backend"`
}

func (a *API) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	if a.model == nil {
		writeError(w, http.StatusNotFound, "local model backend is disabled")
		return
	}
	info, ok := a.model.Info()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "local model not loaded")
		return
	}
	writeJSON(w, http.StatusOK, modelInfoResponse{Info: info, Backend: a.decider.BackendName()})
}

type trainRequest struct {
	Samples []local.Sample `json:"samples"`
}

func (a *API) handleTrainModel(w http.ResponseWriter, r *http.Request) {
	if a.model == nil {
		writeError(w, http.StatusNotFound, "local model backend is disabled")
		return
	}

	var req trainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	sum, err := a.model.Retrain(r.Context(), req.Samples)
	if errors.Is(err, triage.ErrTraining) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.logger.Error(r.Context(), err, "model retrain failed", "samples", len(req.Samples))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.logger.Info(r.Context(), "local model retrained",
		"samples", sum.Samples,
		"unknown_labels", sum.UnknownLabels,
		"training_accuracy", sum.TrainingAccuracy,
	)
	writeJSON(w, http.StatusOK, sum)
}
