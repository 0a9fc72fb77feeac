package models

import "sort"

// Project represents a project registered on the SonarQube server
type Project struct {
	Key              string  `json:"key"`
	Name             string  `json:"name"`
	Qualifier        string  `json:"qualifier"`
	Visibility       string  `json:"visibility"`
	LastAnalysisDate *string `json:"last_analysis_date,omitempty"`
}

// GateCondition is a single threshold attached to a quality gate
type GateCondition struct {
	MetricKey      string  `json:"metric_key"`
	Comparator     string  `json:"comparator"`
	PeriodIndex    *int    `json:"period_index,omitempty"`
	ErrorThreshold *string `json:"error_threshold,omitempty"`
	ActualValue    *string `json:"actual_value,omitempty"`
	Status         string  `json:"status"`
}

// QualityGate is the gate evaluation reported for a project
type QualityGate struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"` // OK, ERROR, WARN, NONE
	Conditions []GateCondition `json:"conditions"`
}

// Measure is a single metric value for a project. A nil Value means the
// server did not report the metric.
type Measure struct {
	Metric string  `json:"metric"`
	Value  *string `json:"value,omitempty"`
}

// QualityMetrics aggregates the collected metrics for one project. Metric
// fields hold the raw server strings; nil means the metric was absent.
// JSON field names match the export format, and nil fields serialize as
// null rather than being omitted.
type QualityMetrics struct {
	ProjectKey             string  `json:"projectKey"`
	ProjectName            string  `json:"projectName"`
	QualityGateStatus      string  `json:"qualityGateStatus"`
	Coverage               *string `json:"coverage"`
	DuplicatedLinesDensity *string `json:"duplicatedLinesDensity"`
	MaintainabilityRating  *string `json:"maintainabilityRating"`
	ReliabilityRating      *string `json:"reliabilityRating"`
	SecurityRating         *string `json:"securityRating"`
	Vulnerabilities        *string `json:"vulnerabilities"`
	Bugs                   *string `json:"bugs"`
	CodeSmells             *string `json:"codeSmells"`
	TechnicalDebt          *string `json:"technicalDebt"`
	LinesOfCode            *string `json:"linesOfCode"`
	LastAnalysisDate       *string `json:"lastAnalysisDate"`
}

// FetchFailure records a project whose metrics could not be collected
type FetchFailure struct {
	ProjectKey  string `json:"project_key"`
	ProjectName string `json:"project_name"`
	Reason      string `json:"reason"`
}

// CollectionResult is the outcome of a metrics collection run. Every input
// project appears exactly once, either in Metrics or in Failures.
type CollectionResult struct {
	Metrics  []QualityMetrics `json:"metrics"`
	Failures []FetchFailure   `json:"failures"`
}

// Total returns the number of projects the run covered.
func (r *CollectionResult) Total() int {
	return len(r.Metrics) + len(r.Failures)
}

// GateCounts returns how many collected projects passed, failed and warned
// their quality gate.
func (r *CollectionResult) GateCounts() (passed, failed, warned int) {
	for _, m := range r.Metrics {
		switch m.QualityGateStatus {
		case GateStatusOK:
			passed++
		case GateStatusError:
			failed++
		case GateStatusWarn:
			warned++
		}
	}
	return passed, failed, warned
}

// SortByProjectKey orders metrics and failures by project key so output is
// deterministic regardless of worker completion order.
func (r *CollectionResult) SortByProjectKey() {
	sort.Slice(r.Metrics, func(i, j int) bool {
		return r.Metrics[i].ProjectKey < r.Metrics[j].ProjectKey
	})
	sort.Slice(r.Failures, func(i, j int) bool {
		return r.Failures[i].ProjectKey < r.Failures[j].ProjectKey
	})
}

// ProjectClassification is the activity assessment for one project
type ProjectClassification struct {
	ProjectKey             string   `json:"project_key"`
	ProjectName            string   `json:"project_name"`
	Status                 string   `json:"status"` // active or configured_inactive
	LastAnalysisDate       *string  `json:"last_analysis_date"`
	LinesOfCode            int      `json:"lines_of_code"`
	Coverage               *float64 `json:"coverage"`
	DuplicatedLinesPercent *float64 `json:"duplicated_lines_percent"`
	Bugs                   int      `json:"bugs"`
	Vulnerabilities        int      `json:"vulnerabilities"`
	CodeSmells             int      `json:"code_smells"`
	HasRecentAnalysis      bool     `json:"has_recent_analysis"`
	HasMetrics             bool     `json:"has_metrics"`
}

// ClassificationResult splits all projects into active and configured
// inactive groups. Every input project lands in exactly one group, so
// Total always equals len(Active)+len(Inactive).
type ClassificationResult struct {
	Total    int                     `json:"total"`
	Active   []ProjectClassification `json:"active_projects"`
	Inactive []ProjectClassification `json:"configured_inactive_projects"`
}

// ActiveCount returns the number of active projects.
func (r *ClassificationResult) ActiveCount() int {
	return len(r.Active)
}

// InactiveCount returns the number of configured but inactive projects.
func (r *ClassificationResult) InactiveCount() int {
	return len(r.Inactive)
}

// ActivePercentage returns the active share in percent, 0 for an empty
// result.
func (r *ClassificationResult) ActivePercentage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(len(r.Active)) / float64(r.Total) * 100
}

// All returns the active projects followed by the inactive ones.
func (r *ClassificationResult) All() []ProjectClassification {
	all := make([]ProjectClassification, 0, len(r.Active)+len(r.Inactive))
	all = append(all, r.Active...)
	all = append(all, r.Inactive...)
	return all
}

// SortByProjectKey orders both groups by project key.
func (r *ClassificationResult) SortByProjectKey() {
	sort.Slice(r.Active, func(i, j int) bool {
		return r.Active[i].ProjectKey < r.Active[j].ProjectKey
	})
	sort.Slice(r.Inactive, func(i, j int) bool {
		return r.Inactive[i].ProjectKey < r.Inactive[j].ProjectKey
	})
}
