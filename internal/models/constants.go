// Package models provides domain types and constants for the SonarQube
// collector.
//
// This file consolidates the status constants and the fixed metric key set
// used throughout the application. Import these constants instead of
// defining local ones.
package models

// Quality gate status constants as reported by SonarQube.
const (
	GateStatusOK    = "OK"
	GateStatusError = "ERROR"
	GateStatusWarn  = "WARN"
	GateStatusNone  = "NONE"
)

// ValidGateStatuses returns all valid quality gate status values.
func ValidGateStatuses() []string {
	return []string{GateStatusOK, GateStatusError, GateStatusWarn, GateStatusNone}
}

// IsValidGateStatus checks if a quality gate status value is valid.
func IsValidGateStatus(status string) bool {
	for _, s := range ValidGateStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Classification status constants for project activity.
const (
	ClassificationActive   = "active"
	ClassificationInactive = "configured_inactive"
)

// Run kind constants for persisted collection runs.
const (
	RunKindMetrics        = "metrics"
	RunKindClassification = "classification"
)

// Run status constants for the collection run lifecycle.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// QualifierProject is the SonarQube component qualifier for analyzable
// projects.
const QualifierProject = "TRK"

// Metric key constants for the measures API.
const (
	MetricCoverage               = "coverage"
	MetricDuplicatedLinesDensity = "duplicated_lines_density"
	MetricMaintainabilityRating  = "maintainability_rating"
	MetricReliabilityRating      = "reliability_rating"
	MetricSecurityRating         = "security_rating"
	MetricVulnerabilities        = "vulnerabilities"
	MetricBugs                   = "bugs"
	MetricCodeSmells             = "code_smells"
	MetricSqaleIndex             = "sqale_index"
	MetricNcloc                  = "ncloc"
)

// MetricKeys returns the fixed set of metric keys requested for every
// project, in request order.
func MetricKeys() []string {
	return []string{
		MetricCoverage,
		MetricDuplicatedLinesDensity,
		MetricMaintainabilityRating,
		MetricReliabilityRating,
		MetricSecurityRating,
		MetricVulnerabilities,
		MetricBugs,
		MetricCodeSmells,
		MetricSqaleIndex,
		MetricNcloc,
	}
}
