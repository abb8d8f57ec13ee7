// Package alert is the IT-operations alert domain: model, validation,
// persistence interface and the service that triages new alerts.
package alert

import (
	"time"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// Severity is the operator-assigned alert severity.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Alert is a single operational alert and its triage outcome.
type Alert struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	Severity         Severity      `json:"severity"`
	Status           Status        `json:"status"`
	SourceSystem     string        `json:"source_system,omitempty"`
	SourceID         string        `json:"source_id,omitempty"`
	AssignedTo       string        `json:"assigned_to,omitempty"`
	AIPriorityScore  int           `json:"ai_priority_score"`
	AIClassification string        `json:"ai_classification,omitempty"`
	SuggestedAction  string        `json:"suggested_action,omitempty"`
	TriageMethod     triage.Method `json:"triage_method,omitempty"`
	AutoResolved     bool          `json:"auto_resolved"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        *time.Time    `json:"updated_at,omitempty"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty"`
}

// Text returns the fields an alert is triaged on.
func (a *Alert) Text() triage.AlertText {
	return triage.AlertText{Title: a.Title, Description: a.Description}
}

// Active reports whether the alert still needs attention.
func (a *Alert) Active() bool {
	return a.Status == StatusOpen || a.Status == StatusInProgress
}

// CreateRequest is the input for creating an alert.
type CreateRequest struct {
	Title        string   `json:"title" validate:"required,max=255"`
	Description  string   `json:"description"`
	Severity     Severity `json:"severity" validate:"omitempty,oneof=critical high medium low"`
	SourceSystem string   `json:"source_system" validate:"max=100"`
	SourceID     string   `json:"source_id" validate:"max=100"`
}

// UpdateRequest is a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string   `json:"description"`
	Severity    *Severity `json:"severity" validate:"omitempty,oneof=critical high medium low"`
	Status      *Status   `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	AssignedTo  *string   `json:"assigned_to" validate:"omitempty,max=100"`
}

// Filter selects a page of alerts, newest first.
type Filter struct {
	Skip     int
	Limit    int
	Severity Severity
	Status   Status
}

// Summary aggregates alert counts.
type Summary struct {
	TotalAlerts       int              `json:"total_alerts"`
	StatusBreakdown   map[Status]int   `json:"alerts_by_status"`
	SeverityBreakdown map[Severity]int `json:"alerts_by_severity"`
}
