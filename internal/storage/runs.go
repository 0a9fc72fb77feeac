package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
	"gorm.io/gorm"
)

// CreateRun inserts a new collection run record in the running state
func (d *Database) CreateRun(ctx context.Context, run *models.CollectionRun) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	// Set defaults
	run.Status = models.RunStatusRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	if err := d.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create collection run: %w", err)
	}

	return nil
}

// UpdateRunProgress updates the success and failure counters of a run.
// Progress trackers call it from worker completions while the run is still
// executing.
func (d *Database) UpdateRunProgress(runID string, succeeded, failed int) error {
	result := d.db.Model(&models.CollectionRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"succeeded": succeeded,
			"failed":    failed,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update run progress: %w", result.Error)
	}

	return nil
}

// CompleteMetricsRun marks a metrics run as completed and records the final
// counters from the collection result
func (d *Database) CompleteMetricsRun(ctx context.Context, runID string, result *models.CollectionResult) error {
	now := time.Now()
	res := d.db.WithContext(ctx).Model(&models.CollectionRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"status":         models.RunStatusCompleted,
			"completed_at":   now,
			"total_projects": result.Total(),
			"succeeded":      len(result.Metrics),
			"failed":         len(result.Failures),
		})

	if res.Error != nil {
		return fmt.Errorf("failed to complete metrics run: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("collection run %s not found", runID)
	}

	return nil
}

// CompleteClassificationRun marks a classification run as completed and
// records the final activity counts
func (d *Database) CompleteClassificationRun(ctx context.Context, runID string, result *models.ClassificationResult) error {
	now := time.Now()
	res := d.db.WithContext(ctx).Model(&models.CollectionRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"status":         models.RunStatusCompleted,
			"completed_at":   now,
			"total_projects": result.Total,
			"active_count":   result.ActiveCount(),
			"inactive_count": result.InactiveCount(),
		})

	if res.Error != nil {
		return fmt.Errorf("failed to complete classification run: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("collection run %s not found", runID)
	}

	return nil
}

// FailRun marks a run as failed with an error message
func (d *Database) FailRun(ctx context.Context, runID string, errorMsg string) error {
	now := time.Now()
	res := d.db.WithContext(ctx).Model(&models.CollectionRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"status":        models.RunStatusFailed,
			"completed_at":  now,
			"error_message": errorMsg,
		})

	if res.Error != nil {
		return fmt.Errorf("failed to mark run failed: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("collection run %s not found", runID)
	}

	return nil
}

// GetRun retrieves a run by its run ID
// Returns nil if no run with that ID exists
func (d *Database) GetRun(ctx context.Context, runID string) (*models.CollectionRun, error) {
	var run models.CollectionRun
	err := d.db.WithContext(ctx).Scopes(WithRunID(runID)).First(&run).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get collection run: %w", err)
	}

	return &run, nil
}

// ListRuns returns runs ordered newest first. When kind is non-empty only
// runs of that kind are returned; a positive limit caps the result.
func (d *Database) ListRuns(ctx context.Context, kind string, limit int) ([]*models.CollectionRun, error) {
	// IDs auto-increment, so descending ID is newest first
	var runs []*models.CollectionRun
	err := d.db.WithContext(ctx).
		Model(&models.CollectionRun{}).
		Scopes(WithRunKind(kind), NewestFirst(), WithLimit(limit)).
		Find(&runs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list collection runs: %w", err)
	}

	return runs, nil
}

// LatestCompletedRun retrieves the most recent completed run of the given
// kind. Returns nil if no run of that kind has completed yet
func (d *Database) LatestCompletedRun(ctx context.Context, kind string) (*models.CollectionRun, error) {
	var run models.CollectionRun
	err := d.db.WithContext(ctx).
		Scopes(WithRunKind(kind), WithRunStatus(models.RunStatusCompleted), NewestFirst()).
		First(&run).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s run: %w", kind, err)
	}

	return &run, nil
}
