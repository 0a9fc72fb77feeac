package classify

import (
	"testing"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

func stringPtr(s string) *string {
	return &s
}

// measureSet builds the measure list most tests need.
func measureSet(ncloc string) []models.Measure {
	return []models.Measure{
		{Metric: models.MetricNcloc, Value: stringPtr(ncloc)},
		{Metric: models.MetricCoverage, Value: stringPtr("85.5")},
		{Metric: models.MetricBugs, Value: stringPtr("5")},
	}
}

func TestParseAnalysisDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"utc zulu", "2024-01-01T10:00:00Z", true},
		{"zone with colon", "2024-01-01T10:00:00+01:00", true},
		{"zone without colon", "2023-01-01T10:00:00+0100", true},
		{"utc zone without colon", "2024-01-01T10:00:00+0000", true},
		{"date only", "2024-01-01", false},
		{"garbage", "not-a-date", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseAnalysisDate(tt.value)
			if ok != tt.want {
				t.Errorf("ParseAnalysisDate(%q) ok = %v, want %v", tt.value, ok, tt.want)
			}
		})
	}
}

func TestParseAnalysisDateZoneHandling(t *testing.T) {
	// The same instant written with and without a zone colon must parse to
	// equal times.
	withColon, ok := ParseAnalysisDate("2023-01-01T10:00:00+01:00")
	if !ok {
		t.Fatal("failed to parse timestamp with zone colon")
	}
	withoutColon, ok := ParseAnalysisDate("2023-01-01T10:00:00+0100")
	if !ok {
		t.Fatal("failed to parse timestamp without zone colon")
	}
	if !withColon.Equal(withoutColon) {
		t.Errorf("timestamps differ: %v vs %v", withColon, withoutColon)
	}
}

func TestHasRecentAnalysis(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date *string
		want bool
	}{
		{"five days old", stringPtr(now.Add(-5 * 24 * time.Hour).Format(time.RFC3339)), true},
		{"just inside window", stringPtr(now.Add(-RecencyWindow + time.Minute).Format(time.RFC3339)), true},
		{"just outside window", stringPtr(now.Add(-RecencyWindow - time.Minute).Format(time.RFC3339)), false},
		{"ninety days old", stringPtr(now.Add(-90 * 24 * time.Hour).Format(time.RFC3339)), false},
		{"nil date", nil, false},
		{"empty date", stringPtr(""), false},
		{"unparseable date", stringPtr("garbage"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasRecentAnalysis(tt.date, now)
			if got != tt.want {
				t.Errorf("HasRecentAnalysis() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasMetrics(t *testing.T) {
	tests := []struct {
		name     string
		measures []models.Measure
		want     bool
	}{
		{"positive ncloc", []models.Measure{{Metric: models.MetricNcloc, Value: stringPtr("1200")}}, true},
		{"zero ncloc", []models.Measure{{Metric: models.MetricNcloc, Value: stringPtr("0")}}, false},
		{"negative ncloc", []models.Measure{{Metric: models.MetricNcloc, Value: stringPtr("-5")}}, false},
		{"non numeric ncloc", []models.Measure{{Metric: models.MetricNcloc, Value: stringPtr("12.5")}}, false},
		{"nil ncloc value", []models.Measure{{Metric: models.MetricNcloc}}, false},
		{"no ncloc measure", []models.Measure{{Metric: models.MetricBugs, Value: stringPtr("3")}}, false},
		{"empty measures", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasMetrics(tt.measures)
			if got != tt.want {
				t.Errorf("HasMetrics() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyActive(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	project := models.Project{
		Key:              "proj1",
		Name:             "Project 1",
		LastAnalysisDate: stringPtr(now.Add(-5 * 24 * time.Hour).Format(time.RFC3339)),
	}

	result := Classify(project, measureSet("1200"), now)

	if result.Status != models.ClassificationActive {
		t.Errorf("Status = %q, want %q", result.Status, models.ClassificationActive)
	}
	if !result.HasRecentAnalysis {
		t.Error("HasRecentAnalysis = false, want true")
	}
	if !result.HasMetrics {
		t.Error("HasMetrics = false, want true")
	}
	if result.LinesOfCode != 1200 {
		t.Errorf("LinesOfCode = %d, want 1200", result.LinesOfCode)
	}
	if result.Coverage == nil || *result.Coverage != 85.5 {
		t.Error("Coverage not populated from measures")
	}
	if result.Bugs != 5 {
		t.Errorf("Bugs = %d, want 5", result.Bugs)
	}
}

func TestClassifyStaleAnalysis(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	project := models.Project{
		Key:              "proj1",
		Name:             "Project 1",
		LastAnalysisDate: stringPtr(now.Add(-90 * 24 * time.Hour).Format(time.RFC3339)),
	}

	result := Classify(project, measureSet("1200"), now)

	if result.Status != models.ClassificationInactive {
		t.Errorf("Status = %q, want %q", result.Status, models.ClassificationInactive)
	}
	if result.HasRecentAnalysis {
		t.Error("HasRecentAnalysis = true, want false")
	}
	// Metrics exist even though the analysis is stale.
	if !result.HasMetrics {
		t.Error("HasMetrics = false, want true")
	}
}

func TestClassifyRecentWithoutMetrics(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	project := models.Project{
		Key:              "proj1",
		Name:             "Project 1",
		LastAnalysisDate: stringPtr(now.Add(-24 * time.Hour).Format(time.RFC3339)),
	}

	result := Classify(project, measureSet("0"), now)

	if result.Status != models.ClassificationInactive {
		t.Errorf("Status = %q, want %q", result.Status, models.ClassificationInactive)
	}
	if !result.HasRecentAnalysis {
		t.Error("HasRecentAnalysis = false, want true")
	}
	if result.HasMetrics {
		t.Error("HasMetrics = true, want false")
	}
}

func TestClassifyNoDateNoMetrics(t *testing.T) {
	project := models.Project{Key: "proj1", Name: "Project 1"}

	result := Classify(project, nil, time.Now())

	if result.Status != models.ClassificationInactive {
		t.Errorf("Status = %q, want %q", result.Status, models.ClassificationInactive)
	}
	if result.HasRecentAnalysis || result.HasMetrics {
		t.Error("expected both recency and metrics to be false")
	}
	if result.LinesOfCode != 0 {
		t.Errorf("LinesOfCode = %d, want 0", result.LinesOfCode)
	}
	if result.Coverage != nil {
		t.Error("Coverage should be nil without measures")
	}
	if result.DuplicatedLinesPercent != nil {
		t.Error("DuplicatedLinesPercent should be nil without measures")
	}
}

func TestClassifyEmptyMeasuresKeepsProject(t *testing.T) {
	// A fetch failure classifies with empty measures; the project must
	// still come back, as configured inactive.
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	project := models.Project{
		Key:              "broken",
		Name:             "Broken Project",
		LastAnalysisDate: stringPtr(now.Add(-24 * time.Hour).Format(time.RFC3339)),
	}

	result := Classify(project, []models.Measure{}, now)

	if result.ProjectKey != "broken" {
		t.Errorf("ProjectKey = %q, want %q", result.ProjectKey, "broken")
	}
	if result.Status != models.ClassificationInactive {
		t.Errorf("Status = %q, want %q", result.Status, models.ClassificationInactive)
	}
}

func TestClassifyMalformedNumericFields(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	project := models.Project{
		Key:              "proj1",
		Name:             "Project 1",
		LastAnalysisDate: stringPtr(now.Add(-24 * time.Hour).Format(time.RFC3339)),
	}
	measures := []models.Measure{
		{Metric: models.MetricNcloc, Value: stringPtr("1200")},
		{Metric: models.MetricCoverage, Value: stringPtr("not-a-number")},
		{Metric: models.MetricBugs, Value: stringPtr("many")},
	}

	result := Classify(project, measures, now)

	// Malformed values degrade to defaults without dropping the project.
	if result.Status != models.ClassificationActive {
		t.Errorf("Status = %q, want %q", result.Status, models.ClassificationActive)
	}
	if result.Coverage != nil {
		t.Error("Coverage should be nil for malformed value")
	}
	if result.Bugs != 0 {
		t.Errorf("Bugs = %d, want 0 for malformed value", result.Bugs)
	}
}

func TestClassifyZoneWithoutColonDate(t *testing.T) {
	// SonarQube emits numeric zone offsets without a colon.
	now := time.Date(2023, 1, 10, 12, 0, 0, 0, time.UTC)
	project := models.Project{
		Key:              "proj1",
		Name:             "Project 1",
		LastAnalysisDate: stringPtr("2023-01-01T10:00:00+0100"),
	}

	result := Classify(project, measureSet("800"), now)

	if !result.HasRecentAnalysis {
		t.Error("HasRecentAnalysis = false, want true for nine day old analysis")
	}
	if result.Status != models.ClassificationActive {
		t.Errorf("Status = %q, want %q", result.Status, models.ClassificationActive)
	}
}
