package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects visible to the configured token",
	RunE:  runProjects,
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	projects, err := client.ListProjects(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	fmt.Printf("%-45s %-35s %s\n", "KEY", "NAME", "LAST ANALYSIS")
	for _, project := range projects {
		fmt.Printf("%-45s %-35s %s\n",
			project.Key, project.Name, analysisDateLabel(project.LastAnalysisDate))
	}
	fmt.Printf("\n%d projects\n", len(projects))

	return nil
}
