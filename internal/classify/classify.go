// Package classify implements the project activity classifier.
//
// A project counts as active when its last analysis is recent and its
// measures carry a positive line count. Everything else, including
// projects whose measures could not be fetched, is configured but
// inactive. The policy thresholds are fixed, not configuration.
package classify

import (
	"strconv"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

// RecencyWindow is how far back the last analysis may lie and still count
// as recent.
const RecencyWindow = 30 * 24 * time.Hour

// dateLayouts are the timestamp shapes SonarQube emits. RFC3339 covers
// "Z" and "+01:00" zones; the second layout covers numeric zones without
// a colon ("+0100").
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// ParseAnalysisDate parses a SonarQube analysis timestamp. The boolean
// reports whether the value was parseable.
func ParseAnalysisDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// HasRecentAnalysis reports whether the last analysis lies within the
// recency window. Absent or unparseable dates count as not recent.
func HasRecentAnalysis(lastAnalysisDate *string, now time.Time) bool {
	if lastAnalysisDate == nil || *lastAnalysisDate == "" {
		return false
	}
	ts, ok := ParseAnalysisDate(*lastAnalysisDate)
	if !ok {
		return false
	}
	return now.Sub(ts) <= RecencyWindow
}

// HasMetrics reports whether the measures carry an ncloc value that parses
// as a positive integer.
func HasMetrics(measures []models.Measure) bool {
	for _, m := range measures {
		if m.Metric != models.MetricNcloc || m.Value == nil {
			continue
		}
		lines, err := strconv.Atoi(*m.Value)
		return err == nil && lines > 0
	}
	return false
}

// Classify assesses one project's activity from its measures. Missing or
// malformed inputs degrade the affected fields; no combination of inputs
// drops the project.
func Classify(project models.Project, measures []models.Measure, now time.Time) models.ProjectClassification {
	measureMap := make(map[string]*string, len(measures))
	for _, m := range measures {
		measureMap[m.Metric] = m.Value
	}

	recent := HasRecentAnalysis(project.LastAnalysisDate, now)
	hasMetrics := HasMetrics(measures)

	status := models.ClassificationInactive
	if recent && hasMetrics {
		status = models.ClassificationActive
	}

	return models.ProjectClassification{
		ProjectKey:             project.Key,
		ProjectName:            project.Name,
		Status:                 status,
		LastAnalysisDate:       project.LastAnalysisDate,
		LinesOfCode:            intValue(measureMap[models.MetricNcloc]),
		Coverage:               floatValue(measureMap[models.MetricCoverage]),
		DuplicatedLinesPercent: floatValue(measureMap[models.MetricDuplicatedLinesDensity]),
		Bugs:                   intValue(measureMap[models.MetricBugs]),
		Vulnerabilities:        intValue(measureMap[models.MetricVulnerabilities]),
		CodeSmells:             intValue(measureMap[models.MetricCodeSmells]),
		HasRecentAnalysis:      recent,
		HasMetrics:             hasMetrics,
	}
}

// intValue parses a measure value as an int, defaulting to 0.
func intValue(value *string) int {
	if value == nil {
		return 0
	}
	n, err := strconv.Atoi(*value)
	if err != nil {
		return 0
	}
	return n
}

// floatValue parses a measure value as a float, nil when absent or
// malformed.
func floatValue(value *string) *float64 {
	if value == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		return nil
	}
	return &f
}
