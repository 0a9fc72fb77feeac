package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/sonar-collector/internal/collector"
	"github.com/kuhlman-labs/sonar-collector/internal/export"
	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

var (
	collectCSV     string
	collectJSON    string
	collectWorkers int
	collectTimeout int
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect quality metrics for every project",
	Long: `Fetches the quality gate status and code metrics for every project the
token can see, using a bounded worker pool, and exports the results.

Without export flags both a CSV and a JSON file are written, under
timestamped names in the configured export directory. Above the
configured project threshold the CSV is streamed row by row as workers
finish, so partial results survive an interrupt.

Each run is also recorded in the local database; inspect it later with
'sonar-collector runs' or over MCP.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringVar(&collectCSV, "csv", "",
		"export metrics CSV; --csv=FILE names the file")
	collectCmd.Flags().Lookup("csv").NoOptDefVal = defaultExportName
	collectCmd.Flags().StringVar(&collectJSON, "json", "",
		"export metrics JSON; --json=FILE names the file")
	collectCmd.Flags().Lookup("json").NoOptDefVal = defaultExportName
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 0,
		"parallel workers (default from config)")
	collectCmd.Flags().IntVar(&collectTimeout, "timeout", 0,
		"per-project fetch timeout in seconds (default from config)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if collectWorkers > 0 {
		cfg.Collector.Workers = collectWorkers
	}
	if collectTimeout > 0 {
		cfg.Collector.ItemTimeoutSeconds = collectTimeout
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	csvPath := collectCSV
	jsonPath := collectJSON
	if csvPath == "" && jsonPath == "" {
		// Both exports are produced when none is requested explicitly.
		csvPath, jsonPath = defaultExportName, defaultExportName
	}
	csvPath = resolveExportPath(csvPath, export.DefaultMetricsFilename("csv"), cfg.Export.Directory)
	jsonPath = resolveExportPath(jsonPath, export.DefaultMetricsFilename("json"), cfg.Export.Directory)

	ctx, cancel := runContext("Interrupt received, finishing started fetches...")
	defer cancel()

	fmt.Printf("Fetching project list from %s...\n", client.BaseURL())
	projects, err := client.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}
	fmt.Printf("Found %d projects\n", len(projects))

	runID := uuid.NewString()
	run := &models.CollectionRun{
		RunID:         runID,
		Kind:          models.RunKindMetrics,
		TotalProjects: len(projects),
	}
	if err := db.CreateRun(ctx, run); err != nil {
		return err
	}

	col := collector.NewCollector(client, logger)
	col.SetWorkers(cfg.Collector.Workers)
	col.SetItemTimeout(cfg.Collector.ItemTimeout())
	col.SetProgressTracker(collector.NewMultiProgressTracker(
		collector.NewConsoleProgressTracker(os.Stdout),
		collector.NewRunProgressTracker(db, logger, runID),
	))

	var incremental *export.IncrementalMetricsCSV
	if csvPath != "" && len(projects) > cfg.Collector.IncrementalCSVThreshold {
		incremental, err = export.NewIncrementalMetricsCSV(csvPath)
		if err != nil {
			_ = db.FailRun(context.Background(), runID, err.Error())
			return err
		}
		col.SetMetricsSink(incremental)
		fmt.Printf("High-volume mode: streaming CSV rows to %s\n", csvPath)
	}

	fmt.Println()
	result, runErr := col.CollectQualityMetrics(ctx, projects)

	// Persistence uses a fresh context so an interrupted run still records
	// what it collected.
	persistCtx := context.Background()
	if len(result.Metrics) > 0 {
		if err := db.SaveMetricsSnapshots(persistCtx, runID, result.Metrics); err != nil {
			logger.Warn("Failed to persist metrics snapshots", "run_id", runID, "error", err)
		}
	}
	if runErr != nil {
		if err := db.FailRun(persistCtx, runID, runErr.Error()); err != nil {
			logger.Warn("Failed to mark run failed", "run_id", runID, "error", err)
		}
	} else if err := db.CompleteMetricsRun(persistCtx, runID, result); err != nil {
		logger.Warn("Failed to mark run completed", "run_id", runID, "error", err)
	}

	printCollectStats(result)

	if incremental != nil {
		if err := incremental.Close(); err != nil {
			return fmt.Errorf("failed to finalize CSV export: %w", err)
		}
		fmt.Printf("CSV export saved: %s (%d/%d projects)\n", csvPath, incremental.Rows(), len(projects))
	} else if csvPath != "" {
		if err := export.MetricsCSVFile(csvPath, result.Metrics); err != nil {
			return err
		}
		fmt.Printf("CSV export saved: %s\n", csvPath)
	}
	if jsonPath != "" {
		if err := export.MetricsJSONFile(jsonPath, result.Metrics); err != nil {
			return err
		}
		fmt.Printf("JSON export saved: %s\n", jsonPath)
	}

	fmt.Printf("\nRun ID: %s\n", runID)
	if runErr != nil {
		return fmt.Errorf("collection interrupted: %w", runErr)
	}
	fmt.Println("Collection completed successfully.")
	return nil
}

// printCollectStats prints the gate statistics block for a finished run.
func printCollectStats(result *models.CollectionResult) {
	passed, failed, warned := result.GateCounts()

	fmt.Println("\n=== Collection Summary ===")
	fmt.Printf("Total projects:  %d\n", result.Total())
	fmt.Printf("Collected:       %d\n", len(result.Metrics))
	fmt.Printf("Gates passed:    %d\n", passed)
	fmt.Printf("Gates failed:    %d\n", failed)
	fmt.Printf("Gates warned:    %d\n", warned)
	if len(result.Metrics) > 0 {
		fmt.Printf("Success rate:    %.1f%%\n", float64(passed)/float64(len(result.Metrics))*100)
	}

	if len(result.Failures) > 0 {
		fmt.Println("\nFailed projects:")
		for _, failure := range result.Failures {
			fmt.Printf("  %s: %s\n", failure.ProjectKey, failure.Reason)
		}
	}
}
