package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

// metricsRecord is the JSON shape of one project's metrics. Fields are
// camelCase and carry the raw measure values; absent measures encode as
// null.
type metricsRecord struct {
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

func newMetricsRecord(m models.QualityMetrics) metricsRecord {
	return metricsRecord{
		ProjectKey:             m.ProjectKey,
		ProjectName:            m.ProjectName,
		QualityGateStatus:      m.QualityGateStatus,
		Coverage:               m.Coverage,
		DuplicatedLinesDensity: m.DuplicatedLinesDensity,
		MaintainabilityRating:  m.MaintainabilityRating,
		ReliabilityRating:      m.ReliabilityRating,
		SecurityRating:         m.SecurityRating,
		Vulnerabilities:        m.Vulnerabilities,
		Bugs:                   m.Bugs,
		CodeSmells:             m.CodeSmells,
		TechnicalDebt:          m.TechnicalDebt,
		LinesOfCode:            m.LinesOfCode,
		LastAnalysisDate:       m.LastAnalysisDate,
	}
}

// WriteMetricsJSON writes collected metrics as an indented JSON array.
func WriteMetricsJSON(w io.Writer, metrics []models.QualityMetrics) error {
	records := make([]metricsRecord, 0, len(metrics))
	for _, m := range metrics {
		records = append(records, newMetricsRecord(m))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode metrics JSON: %w", err)
	}
	return nil
}

// MetricsJSONFile writes the metrics JSON to path, creating parent
// directories as needed.
func MetricsJSONFile(path string, metrics []models.QualityMetrics) error {
	return writeToFile(path, func(w io.Writer) error {
		return WriteMetricsJSON(w, metrics)
	})
}

// classificationMetadata summarizes a classification export.
type classificationMetadata struct {
	ExportDate                 string  `json:"export_date"`
	TotalProjects              int     `json:"total_projects"`
	ActiveProjects             int     `json:"active_projects"`
	ConfiguredInactiveProjects int     `json:"configured_inactive_projects"`
	ActivePercentage           float64 `json:"active_percentage"`
}

type classificationDocument struct {
	Metadata classificationMetadata         `json:"metadata"`
	Active   []models.ProjectClassification `json:"active_projects"`
	Inactive []models.ProjectClassification `json:"configured_inactive_projects"`
}

// WriteClassificationJSON writes the classification as an indented JSON
// document: a metadata block followed by both project groups. The active
// percentage is rounded to one decimal; empty groups encode as empty
// arrays, never null.
func WriteClassificationJSON(w io.Writer, result *models.ClassificationResult) error {
	doc := classificationDocument{
		Metadata: classificationMetadata{
			ExportDate:                 time.Now().Format(time.RFC3339),
			TotalProjects:              result.Total,
			ActiveProjects:             result.ActiveCount(),
			ConfiguredInactiveProjects: result.InactiveCount(),
			ActivePercentage:           math.Round(result.ActivePercentage()*10) / 10,
		},
		Active:   result.Active,
		Inactive: result.Inactive,
	}
	if doc.Active == nil {
		doc.Active = []models.ProjectClassification{}
	}
	if doc.Inactive == nil {
		doc.Inactive = []models.ProjectClassification{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode classification JSON: %w", err)
	}
	return nil
}

// ClassificationJSONFile writes the classification JSON to path, creating
// parent directories as needed.
func ClassificationJSONFile(path string, result *models.ClassificationResult) error {
	return writeToFile(path, func(w io.Writer) error {
		return WriteClassificationJSON(w, result)
	})
}
