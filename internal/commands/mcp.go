package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/sonar-collector/internal/mcp"
)

var mcpAddress string

// mcpShutdownTimeout bounds the graceful drain of open SSE connections.
const mcpShutdownTimeout = 30 * time.Second

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve stored run data to AI agents over MCP",
	Long: `Starts a Model Context Protocol server exposing the persisted runs over
SSE, so AI agents can query quality history without touching the
SonarQube server itself.

Available tools:
  list_runs               recent runs with status and counters
  get_run_summary         one run's outcome and statistics
  get_project_metrics     stored metric history for a project
  list_gate_failures      projects failing their quality gate in a run
  classification_summary  latest activity breakdown and inactive projects

Endpoints (default address :8081):
  GET  /sse      SSE connection endpoint
  POST /message  client message endpoint`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddress, "address", "",
		"listen address (default from config)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	address := cfg.MCP.Address
	if mcpAddress != "" {
		address = mcpAddress
	}

	srv := mcp.NewServer(db, logger, mcp.Config{Address: address})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	fmt.Printf("MCP server listening on %s (SSE endpoint /sse)\n", address)
	fmt.Println("Press Ctrl+C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	fmt.Println("\nShutting down MCP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), mcpShutdownTimeout)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
