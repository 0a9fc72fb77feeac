package storage

import (
	"context"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

// RunReader defines read operations for stored runs and snapshots.
// This interface enables dependency injection and easier testing.
type RunReader interface {
	// GetRun retrieves a single run by its run ID.
	GetRun(ctx context.Context, runID string) (*models.CollectionRun, error)
	// ListRuns returns runs newest first, optionally filtered by kind.
	ListRuns(ctx context.Context, kind string, limit int) ([]*models.CollectionRun, error)
	// LatestCompletedRun returns the most recent completed run of a kind.
	LatestCompletedRun(ctx context.Context, kind string) (*models.CollectionRun, error)
	// MetricsForRun returns all metrics snapshots of a run.
	MetricsForRun(ctx context.Context, runID string) ([]*models.MetricsSnapshot, error)
	// GateFailuresForRun returns the snapshots of a run with gate status ERROR.
	GateFailuresForRun(ctx context.Context, runID string) ([]*models.MetricsSnapshot, error)
	// ProjectMetricsHistory returns one project's snapshots across runs.
	ProjectMetricsHistory(ctx context.Context, projectKey string, limit int) ([]*models.MetricsSnapshot, error)
	// ClassificationsForRun returns all classification snapshots of a run.
	ClassificationsForRun(ctx context.Context, runID string) ([]*models.ClassificationSnapshot, error)
}

// RunWriter defines write operations for the run lifecycle.
type RunWriter interface {
	// CreateRun inserts a new run in the running state.
	CreateRun(ctx context.Context, run *models.CollectionRun) error
	// UpdateRunProgress updates the success and failure counters of a run.
	UpdateRunProgress(runID string, succeeded, failed int) error
	// CompleteMetricsRun marks a metrics run completed with final counters.
	CompleteMetricsRun(ctx context.Context, runID string, result *models.CollectionResult) error
	// CompleteClassificationRun marks a classification run completed.
	CompleteClassificationRun(ctx context.Context, runID string, result *models.ClassificationResult) error
	// FailRun marks a run failed and stores the error message.
	FailRun(ctx context.Context, runID string, errorMsg string) error
	// SaveMetricsSnapshots stores the per-project rows of a metrics run.
	SaveMetricsSnapshots(ctx context.Context, runID string, metrics []models.QualityMetrics) error
	// SaveClassificationSnapshots stores the per-project rows of a classification run.
	SaveClassificationSnapshots(ctx context.Context, runID string, classifications []models.ProjectClassification) error
}

// RunStore combines read and write operations for runs.
type RunStore interface {
	RunReader
	RunWriter
}

// Compile-time interface checks.
// These ensure Database implements all defined interfaces.
var (
	_ RunReader = (*Database)(nil)
	_ RunWriter = (*Database)(nil)
	_ RunStore  = (*Database)(nil)
)
