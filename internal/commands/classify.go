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
	classifyCSV  string
	classifyJSON string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify projects as active or configured but inactive",
	Long: `Splits every project into two groups: active projects with a recent
analysis and real metrics, and projects that are configured on the
server but no longer analyzed.

Use the breakdown to measure SonarQube adoption and find projects worth
reactivating. Without export flags both a CSV and a JSON file are
written, under timestamped names in the configured export directory.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyCSV, "csv", "",
		"export classification CSV; --csv=FILE names the file")
	classifyCmd.Flags().Lookup("csv").NoOptDefVal = defaultExportName
	classifyCmd.Flags().StringVar(&classifyJSON, "json", "",
		"export classification JSON; --json=FILE names the file")
	classifyCmd.Flags().Lookup("json").NoOptDefVal = defaultExportName
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
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

	csvPath := classifyCSV
	jsonPath := classifyJSON
	if csvPath == "" && jsonPath == "" {
		csvPath, jsonPath = defaultExportName, defaultExportName
	}
	csvPath = resolveExportPath(csvPath, export.DefaultClassificationFilename("csv"), cfg.Export.Directory)
	jsonPath = resolveExportPath(jsonPath, export.DefaultClassificationFilename("json"), cfg.Export.Directory)

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
		Kind:          models.RunKindClassification,
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

	fmt.Println()
	result, runErr := col.ClassifyProjects(ctx, projects)

	// Persistence uses a fresh context so an interrupted run still records
	// what it classified.
	persistCtx := context.Background()
	if all := result.All(); len(all) > 0 {
		if err := db.SaveClassificationSnapshots(persistCtx, runID, all); err != nil {
			logger.Warn("Failed to persist classification snapshots", "run_id", runID, "error", err)
		}
	}
	if runErr != nil {
		if err := db.FailRun(persistCtx, runID, runErr.Error()); err != nil {
			logger.Warn("Failed to mark run failed", "run_id", runID, "error", err)
		}
	} else if err := db.CompleteClassificationRun(persistCtx, runID, result); err != nil {
		logger.Warn("Failed to mark run completed", "run_id", runID, "error", err)
	}

	printClassifyStats(result)

	if csvPath != "" {
		if err := export.ClassificationCSVFile(csvPath, result); err != nil {
			return err
		}
		fmt.Printf("CSV export saved: %s\n", csvPath)
	}
	if jsonPath != "" {
		if err := export.ClassificationJSONFile(jsonPath, result); err != nil {
			return err
		}
		fmt.Printf("JSON export saved: %s\n", jsonPath)
	}

	fmt.Printf("\nRun ID: %s\n", runID)
	if runErr != nil {
		return fmt.Errorf("classification interrupted: %w", runErr)
	}
	fmt.Println("Classification completed successfully.")
	return nil
}

// printClassifyStats prints the activity breakdown and the adoption
// recommendation it maps to.
func printClassifyStats(result *models.ClassificationResult) {
	fmt.Println("\n=== Classification Summary ===")
	fmt.Printf("Total projects:      %d\n", result.Total)
	fmt.Printf("Active:              %d\n", result.ActiveCount())
	fmt.Printf("Configured inactive: %d\n", result.InactiveCount())

	if result.Total == 0 {
		return
	}

	activePct := result.ActivePercentage()
	inactivePct := float64(result.InactiveCount()) / float64(result.Total) * 100
	fmt.Printf("Breakdown:           %.1f%% active, %.1f%% inactive\n", activePct, inactivePct)
	fmt.Printf("\nRecommendation: %s\n", adoptionRecommendation(activePct))
}

// adoptionRecommendation maps the share of active projects to a short
// adoption assessment.
func adoptionRecommendation(activePct float64) string {
	switch {
	case activePct < 50:
		return "Low adoption rate, consider an activation campaign"
	case activePct < 80:
		return "Medium adoption rate, identify projects worth reactivating"
	default:
		return "Excellent adoption rate!"
	}
}
