package alertapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/opsgenix/internal/alert"
)

type chartPoint struct {
	Name   string `json:"name"`
	Alerts int    `json:"alerts"`
}

type patchSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type recentAlert struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// DashboardSummary feeds the dashboard landing page. Only ActiveAlerts is
// computed; the remaining panels are fixed demo data until patch and
// workflow tracking exist.
type DashboardSummary struct {
	ActiveAlerts    int           `json:"activeAlerts"`
	PatchesDeployed int           `json:"patchesDeployed"`
	AutomationRate  int           `json:"automationRate"`
	MTTR            float64       `json:"mttr"`
	AlertsChart     []chartPoint  `json:"alertsChart"`
	PatchStatus     []patchSlice  `json:"patchStatus"`
	RecentAlerts    []recentAlert `json:"recentAlerts"`
}

func demoDashboard() DashboardSummary {
	return DashboardSummary{
		PatchesDeployed: 156,
		AutomationRate:  78,
		MTTR:            2.5,
		AlertsChart: []chartPoint{
			{"Mon", 12}, {"Tue", 19}, {"Wed", 8}, {"Thu", 15},
			{"Fri", 22}, {"Sat", 6}, {"Sun", 9},
		},
		PatchStatus: []patchSlice{
			{"Deployed", 45, "#10B981"},
			{"Pending", 25, "#F59E0B"},
			{"Failed", 8, "#EF4444"},
			{"Scheduled", 22, "#3B82F6"},
		},
		RecentAlerts: []recentAlert{
			{1, "Database Connection Timeout", "high", "open", "2 minutes ago", "Production DB"},
			{2, "High CPU Usage on Web Server", "medium", "in_progress", "15 minutes ago", "Web-01"},
		},
	}
}

func (a *API) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.svc.Summary(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err, "failed to summarize alerts")
		return
	}

	d := demoDashboard()
	d.ActiveAlerts = sum.StatusBreakdown[alert.StatusOpen] + sum.StatusBreakdown[alert.StatusInProgress]
	writeJSON(w, http.StatusOK, d)
}

func message(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (a *API) handleListPatches(w http.ResponseWriter, _ *http.Request) {
	message(w, "Patches endpoint - coming soon")
}

func (a *API) handleDeployPatch(w http.ResponseWriter, r *http.Request) {
	message(w, fmt.Sprintf("Deploying patch %s", chi.URLParam(r, "id")))
}

func (a *API) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	message(w, "Workflows endpoint - coming soon")
}

func (a *API) handleCreateWorkflow(w http.ResponseWriter, _ *http.Request) {
	message(w, "Creating workflow")
}

func (a *API) handleListIntegrations(w http.ResponseWriter, _ *http.Request) {
	message(w, "Integrations endpoint - coming soon")
}
