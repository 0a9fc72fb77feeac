package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/classify"
	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

// fetchOutcome is the tagged result of one per-project fetch. Exactly one
// of metrics and failure is set.
type fetchOutcome struct {
	metrics *models.QualityMetrics
	failure *models.FetchFailure
}

// fetchProjectMetrics builds the metrics record for one project from its
// quality gate and measures. The client degrades individual call failures
// to absent data, so an expired item context is the signal that the project
// timed out rather than legitimately having no metrics.
func (c *Collector) fetchProjectMetrics(ctx context.Context, project models.Project) fetchOutcome {
	gate := c.client.GetQualityGate(ctx, project.Key)
	measures := c.client.GetMeasures(ctx, project.Key, models.MetricKeys())

	if err := ctx.Err(); err != nil {
		return fetchOutcome{failure: &models.FetchFailure{
			ProjectKey:  project.Key,
			ProjectName: project.Name,
			Reason:      fmt.Sprintf("fetch did not complete: %v", err),
		}}
	}

	values := measureValues(measures)

	metrics := &models.QualityMetrics{
		ProjectKey:             project.Key,
		ProjectName:            project.Name,
		QualityGateStatus:      models.GateStatusNone,
		Coverage:               values[models.MetricCoverage],
		DuplicatedLinesDensity: values[models.MetricDuplicatedLinesDensity],
		MaintainabilityRating:  values[models.MetricMaintainabilityRating],
		ReliabilityRating:      values[models.MetricReliabilityRating],
		SecurityRating:         values[models.MetricSecurityRating],
		Vulnerabilities:        values[models.MetricVulnerabilities],
		Bugs:                   values[models.MetricBugs],
		CodeSmells:             values[models.MetricCodeSmells],
		TechnicalDebt:          values[models.MetricSqaleIndex],
		LinesOfCode:            values[models.MetricNcloc],
		LastAnalysisDate:       project.LastAnalysisDate,
	}
	if gate != nil && gate.Status != "" {
		metrics.QualityGateStatus = gate.Status
	}

	return fetchOutcome{metrics: metrics}
}

// classifyProject fetches measures for one project and classifies it. The
// second return reports whether the fetch window expired; the project is
// then classified from empty measures, which lands it in the configured
// inactive group.
func (c *Collector) classifyProject(ctx context.Context, project models.Project, now time.Time) (models.ProjectClassification, bool) {
	measures := c.client.GetMeasures(ctx, project.Key, models.MetricKeys())

	if ctx.Err() != nil {
		return classify.Classify(project, nil, now), true
	}

	return classify.Classify(project, measures, now), false
}

// measureValues indexes measures by metric key. A measure with a nil value
// stays nil in the map, so absent and valueless metrics look the same to
// the record builder.
func measureValues(measures []models.Measure) map[string]*string {
	values := make(map[string]*string, len(measures))
	for _, measure := range measures {
		values[measure.Metric] = measure.Value
	}
	return values
}
