package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/kuhlman-labs/sonar-collector/internal/classify"
	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

// metricsCSVDelimiter separates metrics CSV columns. Semicolons match the
// layout the report consumers already import.
const metricsCSVDelimiter = ';'

func metricsCSVHeader() []string {
	return []string{
		"Project",
		"Key",
		"Quality Gate",
		"Coverage",
		"Duplication",
		"Maintainability",
		"Reliability",
		"Security",
		"Vulnerabilities",
		"Bugs",
		"Code Smells",
		"Technical Debt",
		"Lines of Code",
		"Last Analysis",
	}
}

func metricsCSVRow(m models.QualityMetrics) []string {
	return []string{
		m.ProjectName,
		m.ProjectKey,
		m.QualityGateStatus,
		ptrToString(m.Coverage),
		ptrToString(m.DuplicatedLinesDensity),
		models.RatingLabel(m.MaintainabilityRating),
		models.RatingLabel(m.ReliabilityRating),
		models.RatingLabel(m.SecurityRating),
		ptrToString(m.Vulnerabilities),
		ptrToString(m.Bugs),
		ptrToString(m.CodeSmells),
		models.FormatTechnicalDebt(m.TechnicalDebt),
		ptrToString(m.LinesOfCode),
		ptrToString(m.LastAnalysisDate),
	}
}

// WriteMetricsCSV writes collected metrics as semicolon delimited CSV,
// header row first. Absent measures render as empty cells, ratings and
// technical debt as "N/A".
func WriteMetricsCSV(w io.Writer, metrics []models.QualityMetrics) error {
	writer := csv.NewWriter(w)
	writer.Comma = metricsCSVDelimiter

	if err := writer.Write(metricsCSVHeader()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, m := range metrics {
		if err := writer.Write(metricsCSVRow(m)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", m.ProjectKey, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// MetricsCSVFile writes the metrics CSV to path, creating parent
// directories as needed.
func MetricsCSVFile(path string, metrics []models.QualityMetrics) error {
	return writeToFile(path, func(w io.Writer) error {
		return WriteMetricsCSV(w, metrics)
	})
}

// IncrementalMetricsCSV appends metric rows to a CSV file as they are
// collected. It implements collector.MetricsSink and is safe for use from
// concurrent workers; rows land in completion order. Every row is flushed
// immediately so a partial file survives an aborted run.
type IncrementalMetricsCSV struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewIncrementalMetricsCSV creates path and writes the header row.
func NewIncrementalMetricsCSV(path string) (*IncrementalMetricsCSV, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(f)
	writer.Comma = metricsCSVDelimiter
	if err := writer.Write(metricsCSVHeader()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to flush CSV header: %w", err)
	}

	return &IncrementalMetricsCSV{file: f, writer: writer}, nil
}

// MetricCollected writes one metric row and flushes it to disk. Write
// errors are sticky and surface from Close.
func (s *IncrementalMetricsCSV) MetricCollected(m models.QualityMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return
	}
	if err := s.writer.Write(metricsCSVRow(m)); err == nil {
		s.rows++
	}
	s.writer.Flush()
}

// Rows returns the number of rows written so far, excluding the header.
func (s *IncrementalMetricsCSV) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Close flushes pending rows and closes the file. Further Close and
// MetricCollected calls are no-ops.
func (s *IncrementalMetricsCSV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return nil
	}

	s.writer.Flush()
	writeErr := s.writer.Error()
	s.writer = nil

	closeErr := s.file.Close()
	s.file = nil

	if writeErr != nil {
		return fmt.Errorf("failed to flush CSV: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close export file: %w", closeErr)
	}
	return nil
}

func classificationCSVHeader() []string {
	return []string{
		"Project",
		"Key",
		"Status",
		"Last Analysis",
		"Lines of Code",
		"Coverage (%)",
		"Duplication (%)",
		"Bugs",
		"Vulnerabilities",
		"Code Smells",
		"Recent Analysis",
		"Has Metrics",
	}
}

func classificationCSVRow(p models.ProjectClassification) []string {
	return []string{
		p.ProjectName,
		p.ProjectKey,
		classificationLabel(p.Status),
		formatAnalysisDate(p.LastAnalysisDate),
		strconv.Itoa(p.LinesOfCode),
		formatPercent(p.Coverage),
		formatPercent(p.DuplicatedLinesPercent),
		strconv.Itoa(p.Bugs),
		strconv.Itoa(p.Vulnerabilities),
		strconv.Itoa(p.CodeSmells),
		yesNo(p.HasRecentAnalysis),
		yesNo(p.HasMetrics),
	}
}

// WriteClassificationCSV writes the classification as comma delimited CSV,
// active projects first, then the configured inactive ones.
func WriteClassificationCSV(w io.Writer, result *models.ClassificationResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(classificationCSVHeader()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range result.All() {
		if err := writer.Write(classificationCSVRow(p)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", p.ProjectKey, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// ClassificationCSVFile writes the classification CSV to path, creating
// parent directories as needed.
func ClassificationCSVFile(path string, result *models.ClassificationResult) error {
	return writeToFile(path, func(w io.Writer) error {
		return WriteClassificationCSV(w, result)
	})
}

// ptrToString dereferences s, returning "" for nil.
func ptrToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// classificationLabel maps a classification status to its report label.
func classificationLabel(status string) string {
	if status == models.ClassificationActive {
		return "Active"
	}
	return "Configured but Inactive"
}

// formatAnalysisDate renders an analysis timestamp as a plain date and
// absent dates as "Never". Unparseable values pass through unchanged.
func formatAnalysisDate(date *string) string {
	if date == nil || *date == "" {
		return "Never"
	}
	if t, ok := classify.ParseAnalysisDate(*date); ok {
		return t.Format("2006-01-02")
	}
	return *date
}

// formatPercent renders a percentage with one decimal, "N/A" when absent.
func formatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
