// Package export renders collection and classification results as CSV and
// JSON files. The CSV layouts target spreadsheet review, the JSON layouts
// downstream tooling; both carry the same data.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// filenameTimestamp is the layout used in default export filenames.
const filenameTimestamp = "20060102_150405"

const (
	metricsFilenamePrefix        = "sonarqube_quality_metrics_"
	classificationFilenamePrefix = "sonarqube_classification_"
)

// DefaultMetricsFilename returns a timestamped filename for a metrics
// export, e.g. "sonarqube_quality_metrics_20240610_143000.csv".
func DefaultMetricsFilename(ext string) string {
	return metricsFilenamePrefix + time.Now().Format(filenameTimestamp) + "." + ext
}

// DefaultClassificationFilename returns a timestamped filename for a
// classification export.
func DefaultClassificationFilename(ext string) string {
	return classificationFilenamePrefix + time.Now().Format(filenameTimestamp) + "." + ext
}

// ResolvePath joins dir and filename unless filename is already absolute.
// An empty or "." dir leaves the filename untouched.
func ResolvePath(dir, filename string) string {
	if dir == "" || dir == "." || filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(dir, filename)
}

// createFile creates the export file, making parent directories as needed.
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	return f, nil
}

// writeToFile creates path and streams the export through write, closing
// the file on all paths.
func writeToFile(path string, write func(io.Writer) error) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}
