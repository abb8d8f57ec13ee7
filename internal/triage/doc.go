// Package triage assigns a priority score and classification to incoming alerts.
// It defines the Engine (backend orchestration with heuristic fallback), the
// Backend interface implemented by the remote and local model packages, the
// keyword heuristic, feature extraction, and the shared result types.
package triage
