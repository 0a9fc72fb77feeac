package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

// snapshotBatchSize bounds INSERT sizes so SQLite's variable limit is never hit.
const snapshotBatchSize = 100

// SaveMetricsSnapshots stores one snapshot row per collected project for the
// given run
func (d *Database) SaveMetricsSnapshots(ctx context.Context, runID string, metrics []models.QualityMetrics) error {
	if len(metrics) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.MetricsSnapshot, 0, len(metrics))
	for _, m := range metrics {
		row := models.NewMetricsSnapshot(runID, m)
		row.CreatedAt = now
		rows = append(rows, row)
	}

	result := d.db.WithContext(ctx).CreateInBatches(rows, snapshotBatchSize)
	if result.Error != nil {
		return fmt.Errorf("failed to save metrics snapshots: %w", result.Error)
	}

	return nil
}

// MetricsForRun retrieves all metrics snapshots of a run ordered by project key
func (d *Database) MetricsForRun(ctx context.Context, runID string) ([]*models.MetricsSnapshot, error) {
	var rows []*models.MetricsSnapshot
	err := d.db.WithContext(ctx).
		Scopes(WithRunID(runID), ByProjectKey()).
		Find(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for run: %w", err)
	}

	return rows, nil
}

// GateFailuresForRun retrieves the metrics snapshots of a run whose quality
// gate reported ERROR
func (d *Database) GateFailuresForRun(ctx context.Context, runID string) ([]*models.MetricsSnapshot, error) {
	var rows []*models.MetricsSnapshot
	err := d.db.WithContext(ctx).
		Scopes(WithRunID(runID), WithGateStatus(models.GateStatusError), ByProjectKey()).
		Find(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get gate failures for run: %w", err)
	}

	return rows, nil
}

// ProjectMetricsHistory retrieves the stored snapshots of one project across
// runs, newest first. A positive limit caps the result
func (d *Database) ProjectMetricsHistory(ctx context.Context, projectKey string, limit int) ([]*models.MetricsSnapshot, error) {
	var rows []*models.MetricsSnapshot
	err := d.db.WithContext(ctx).
		Scopes(WithProjectKey(projectKey), NewestFirst(), WithLimit(limit)).
		Find(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get metrics history for %s: %w", projectKey, err)
	}

	return rows, nil
}

// SaveClassificationSnapshots stores one snapshot row per classified project
// for the given run
func (d *Database) SaveClassificationSnapshots(ctx context.Context, runID string, classifications []models.ProjectClassification) error {
	if len(classifications) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.ClassificationSnapshot, 0, len(classifications))
	for _, c := range classifications {
		row := models.NewClassificationSnapshot(runID, c)
		row.CreatedAt = now
		rows = append(rows, row)
	}

	result := d.db.WithContext(ctx).CreateInBatches(rows, snapshotBatchSize)
	if result.Error != nil {
		return fmt.Errorf("failed to save classification snapshots: %w", result.Error)
	}

	return nil
}

// ClassificationsForRun retrieves all classification snapshots of a run
// ordered by project key
func (d *Database) ClassificationsForRun(ctx context.Context, runID string) ([]*models.ClassificationSnapshot, error) {
	var rows []*models.ClassificationSnapshot
	err := d.db.WithContext(ctx).
		Scopes(WithRunID(runID), ByProjectKey()).
		Find(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get classifications for run: %w", err)
	}

	return rows, nil
}
