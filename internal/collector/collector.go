// Package collector runs bulk collection against the SonarQube API: a
// fixed-size worker pool fans per-project fetches out over the client,
// isolates per-project failures and produces exactly one outcome for every
// input project.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
	"github.com/kuhlman-labs/sonar-collector/internal/sonarqube"
)

const (
	defaultWorkers     = 10
	defaultItemTimeout = 60 * time.Second
)

// Collector fetches quality data for many projects in parallel
type Collector struct {
	client      *sonarqube.Client
	logger      *slog.Logger
	workers     int // Number of parallel workers
	itemTimeout time.Duration
	progress    ProgressTracker
	sink        MetricsSink
}

// MetricsSink receives each successfully collected metric as soon as its
// worker finishes, in completion order. Implementations must be safe for
// concurrent use.
type MetricsSink interface {
	MetricCollected(m models.QualityMetrics)
}

// NewCollector creates a new metrics collector with the default pool size
// and per-item timeout
func NewCollector(client *sonarqube.Client, logger *slog.Logger) *Collector {
	return &Collector{
		client:      client,
		logger:      logger,
		workers:     defaultWorkers,
		itemTimeout: defaultItemTimeout,
		progress:    NoOpProgressTracker{},
	}
}

// SetWorkers sets the number of parallel workers for processing
func (c *Collector) SetWorkers(workers int) {
	if workers > 0 {
		c.workers = workers
	}
}

// SetItemTimeout sets the time budget for a single project's fetch
func (c *Collector) SetItemTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.itemTimeout = timeout
	}
}

// SetProgressTracker sets the tracker that receives completion events
func (c *Collector) SetProgressTracker(tracker ProgressTracker) {
	if tracker != nil {
		c.progress = tracker
	}
}

// SetMetricsSink sets the sink that receives successful metrics as they
// are collected. Failed fetches never reach the sink.
func (c *Collector) SetMetricsSink(sink MetricsSink) {
	if sink != nil {
		c.sink = sink
	}
}

// CollectQualityMetrics fetches the quality gate and measures for every
// project in the list. Per-project failures are recorded in the result
// rather than aborting the batch, so the result always covers all input
// projects. The returned error is non-nil only when the parent context was
// canceled; even then the result is complete, with canceled fetches
// recorded as failures.
func (c *Collector) CollectQualityMetrics(ctx context.Context, projects []models.Project) (*models.CollectionResult, error) {
	result := &models.CollectionResult{}
	if len(projects) == 0 {
		return result, nil
	}

	c.logger.Info("Starting quality metrics collection",
		"total_projects", len(projects),
		"workers", c.workers,
		"item_timeout", c.itemTimeout.String())

	c.progress.Start(len(projects))

	jobs := make(chan models.Project, len(projects))
	results := make(chan fetchOutcome, len(projects))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go c.metricsWorker(ctx, &wg, i, jobs, results)
	}

	// Send jobs
	for _, project := range projects {
		jobs <- project
	}
	close(jobs)

	// Wait for completion
	wg.Wait()
	close(results)

	// Collect results
	for outcome := range results {
		if outcome.failure != nil {
			result.Failures = append(result.Failures, *outcome.failure)
			continue
		}
		result.Metrics = append(result.Metrics, *outcome.metrics)
	}
	result.SortByProjectKey()

	c.progress.Finish()

	passed, failed, warned := result.GateCounts()
	c.logger.Info("Quality metrics collection complete",
		"total_projects", result.Total(),
		"collected", len(result.Metrics),
		"fetch_failures", len(result.Failures),
		"gates_passed", passed,
		"gates_failed", failed,
		"gates_warned", warned)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// metricsWorker processes projects from the jobs channel
func (c *Collector) metricsWorker(ctx context.Context, wg *sync.WaitGroup, workerID int, jobs <-chan models.Project, results chan<- fetchOutcome) {
	defer wg.Done()

	for project := range jobs {
		c.logger.Debug("Worker fetching project metrics",
			"worker_id", workerID,
			"project", project.Key)

		itemCtx, cancel := context.WithTimeout(ctx, c.itemTimeout)
		outcome := c.fetchProjectMetrics(itemCtx, project)
		cancel()

		if outcome.failure != nil {
			c.logger.Warn("Failed to collect metrics for project",
				"worker_id", workerID,
				"project", project.Key,
				"reason", outcome.failure.Reason)
		} else if c.sink != nil {
			c.sink.MetricCollected(*outcome.metrics)
		}

		c.progress.ItemCompleted(project.Key, outcome.failure != nil)
		results <- outcome
	}
}

// ClassifyProjects fetches measures for every project and classifies each
// one as active or configured inactive. Projects whose fetch fails are
// classified from empty measures and land in the inactive group, so no
// project is ever dropped.
func (c *Collector) ClassifyProjects(ctx context.Context, projects []models.Project) (*models.ClassificationResult, error) {
	result := &models.ClassificationResult{Total: len(projects)}
	if len(projects) == 0 {
		return result, nil
	}

	c.logger.Info("Starting project classification",
		"total_projects", len(projects),
		"workers", c.workers,
		"item_timeout", c.itemTimeout.String())

	// One reference instant for the whole run keeps the recency window
	// consistent across workers.
	now := time.Now()

	c.progress.Start(len(projects))

	jobs := make(chan models.Project, len(projects))
	results := make(chan models.ProjectClassification, len(projects))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go c.classifyWorker(ctx, &wg, i, now, jobs, results)
	}

	// Send jobs
	for _, project := range projects {
		jobs <- project
	}
	close(jobs)

	// Wait for completion
	wg.Wait()
	close(results)

	// Collect results
	for classification := range results {
		if classification.Status == models.ClassificationActive {
			result.Active = append(result.Active, classification)
		} else {
			result.Inactive = append(result.Inactive, classification)
		}
	}
	result.SortByProjectKey()

	c.progress.Finish()

	c.logger.Info("Project classification complete",
		"total_projects", result.Total,
		"active", result.ActiveCount(),
		"configured_inactive", result.InactiveCount())

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// classifyWorker processes projects from the jobs channel
func (c *Collector) classifyWorker(ctx context.Context, wg *sync.WaitGroup, workerID int, now time.Time, jobs <-chan models.Project, results chan<- models.ProjectClassification) {
	defer wg.Done()

	for project := range jobs {
		c.logger.Debug("Worker classifying project",
			"worker_id", workerID,
			"project", project.Key)

		itemCtx, cancel := context.WithTimeout(ctx, c.itemTimeout)
		classification, failed := c.classifyProject(itemCtx, project, now)
		cancel()

		if failed {
			c.logger.Warn("Classified project without measures after fetch failure",
				"worker_id", workerID,
				"project", project.Key)
		}

		c.progress.ItemCompleted(project.Key, failed)
		results <- classification
	}
}
