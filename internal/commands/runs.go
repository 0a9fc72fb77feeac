package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored collection runs",
	Long: `Lists the runs recorded in the local database, newest first, with their
status and result counters.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	runs, err := db.ListRuns(context.Background(), "", runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs. Start one with 'sonar-collector collect' or 'sonar-collector classify'.")
		return nil
	}

	fmt.Printf("%-36s  %-14s  %-9s  %-19s  %s\n", "RUN ID", "KIND", "STATUS", "STARTED", "RESULT")
	for _, run := range runs {
		fmt.Printf("%-36s  %-14s  %-9s  %-19s  %s\n",
			run.RunID,
			run.Kind,
			run.Status,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			runResultColumn(run))
	}

	return nil
}

// runResultColumn summarizes one run's outcome for the listing.
func runResultColumn(run *models.CollectionRun) string {
	switch {
	case run.Status == models.RunStatusFailed:
		if run.ErrorMessage != nil && *run.ErrorMessage != "" {
			return "error: " + *run.ErrorMessage
		}
		return "error"
	case run.Status == models.RunStatusRunning:
		return fmt.Sprintf("%d/%d done", run.Succeeded+run.Failed, run.TotalProjects)
	case run.Kind == models.RunKindClassification:
		return fmt.Sprintf("%d active / %d inactive of %d", run.ActiveCount, run.InactiveCount, run.TotalProjects)
	default:
		return fmt.Sprintf("%d collected / %d failed of %d", run.Succeeded, run.Failed, run.TotalProjects)
	}
}
