package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Verify the configured SonarQube server is reachable",
	RunE:  runTestConnection,
}

func runTestConnection(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Testing connection to %s...\n", client.BaseURL())
	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout(cfg))
	defer cancel()

	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Println("Connection successful!")
	return nil
}
