// Package mcp provides a Model Context Protocol server for the SonarQube
// collector. It exposes persisted run data as read-only tools to AI agents
// via the MCP protocol.
package mcp

import (
	"time"
)

// RunInfo represents a summarized view of a collection run for tool responses
type RunInfo struct {
	RunID         string    `json:"run_id"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   *string   `json:"completed_at,omitempty"`
	TotalProjects int       `json:"total_projects"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	ActiveCount   int       `json:"active_count,omitempty"`
	InactiveCount int       `json:"inactive_count,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
}

// MetricsRunStats is the quality gate breakdown of one metrics run
type MetricsRunStats struct {
	Collected   int `json:"collected"`
	GatesPassed int `json:"gates_passed"`
	GatesFailed int `json:"gates_failed"`
	GatesWarned int `json:"gates_warned"`
}

// ClassificationRunStats is the activity breakdown of one classification run
type ClassificationRunStats struct {
	Active           int     `json:"active"`
	Inactive         int     `json:"inactive"`
	ActivePercentage float64 `json:"active_percentage"`
}

// ProjectMetricsEntry is one stored snapshot of a project's metrics.
// Ratings are letter grades and technical debt is formatted for reading.
type ProjectMetricsEntry struct {
	RunID                  string    `json:"run_id"`
	ProjectKey             string    `json:"project_key"`
	ProjectName            string    `json:"project_name"`
	QualityGateStatus      string    `json:"quality_gate_status"`
	Coverage               *string   `json:"coverage,omitempty"`
	DuplicatedLinesDensity *string   `json:"duplicated_lines_density,omitempty"`
	MaintainabilityRating  string    `json:"maintainability_rating"`
	ReliabilityRating      string    `json:"reliability_rating"`
	SecurityRating         string    `json:"security_rating"`
	Vulnerabilities        *string   `json:"vulnerabilities,omitempty"`
	Bugs                   *string   `json:"bugs,omitempty"`
	CodeSmells             *string   `json:"code_smells,omitempty"`
	TechnicalDebt          string    `json:"technical_debt"`
	LinesOfCode            *string   `json:"lines_of_code,omitempty"`
	LastAnalysisDate       *string   `json:"last_analysis_date,omitempty"`
	CollectedAt            time.Time `json:"collected_at"`
}

// InactiveProjectInfo describes one configured but inactive project
type InactiveProjectInfo struct {
	ProjectKey       string  `json:"project_key"`
	ProjectName      string  `json:"project_name"`
	LastAnalysisDate *string `json:"last_analysis_date,omitempty"`
	LinesOfCode      int     `json:"lines_of_code"`
}

// ------- Tool Output Types -------

// ListRunsOutput is the output for the list_runs tool
type ListRunsOutput struct {
	Runs    []RunInfo `json:"runs"`
	Count   int       `json:"count"`
	Message string    `json:"message"`
}

// RunSummaryOutput is the output for the get_run_summary tool. Exactly one
// of Metrics and Classification is set, matching the run kind.
type RunSummaryOutput struct {
	Run            RunInfo                 `json:"run"`
	Metrics        *MetricsRunStats        `json:"metrics,omitempty"`
	Classification *ClassificationRunStats `json:"classification,omitempty"`
	Message        string                  `json:"message"`
}

// ProjectMetricsOutput is the output for the get_project_metrics tool
type ProjectMetricsOutput struct {
	ProjectKey string                `json:"project_key"`
	History    []ProjectMetricsEntry `json:"history"`
	Count      int                   `json:"count"`
	Message    string                `json:"message"`
}

// GateFailuresOutput is the output for the list_gate_failures tool
type GateFailuresOutput struct {
	RunID    string                `json:"run_id"`
	Failures []ProjectMetricsEntry `json:"failures"`
	Count    int                   `json:"count"`
	Message  string                `json:"message"`
}

// ClassificationSummaryOutput is the output for the classification_summary tool
type ClassificationSummaryOutput struct {
	RunID            string                `json:"run_id"`
	CompletedAt      *string               `json:"completed_at,omitempty"`
	TotalProjects    int                   `json:"total_projects"`
	Active           int                   `json:"active"`
	Inactive         int                   `json:"inactive"`
	ActivePercentage float64               `json:"active_percentage"`
	InactiveProjects []InactiveProjectInfo `json:"inactive_projects"`
	Message          string                `json:"message"`
}
