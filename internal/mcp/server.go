package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/kuhlman-labs/sonar-collector/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server and provides collector-specific tools
type Server struct {
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
	store     storage.RunReader
	logger    *slog.Logger
	addr      string
	mu        sync.RWMutex
	running   bool
}

// Config holds configuration for the MCP server
type Config struct {
	// Address to listen on (e.g., ":8081")
	Address string
}

// NewServer creates a new MCP server exposing persisted run data
func NewServer(store storage.RunReader, logger *slog.Logger, cfg Config) *Server {
	// Create the MCP server with capabilities
	mcpServer := server.NewMCPServer(
		"SonarQube Collector",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(`You are the SonarQube collector assistant. You have access to tools that
query persisted collection runs: quality metric snapshots, quality gate failures and
project activity classifications. Use them to answer questions about code quality and
SonarQube adoption across the project portfolio.

Key capabilities:
- List stored collection runs and their outcomes
- Summarize a single run, including its quality gate breakdown
- Fetch the metric history of one project across runs
- List the projects that fail their quality gate
- Summarize the latest activity classification`),
	)

	s := &Server{
		mcpServer: mcpServer,
		store:     store,
		logger:    logger,
		addr:      cfg.Address,
	}

	// Register all collector tools
	s.registerTools()

	return s
}

// Start starts the MCP server on the configured address
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("MCP server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting MCP server", "address", s.addr)

	// Create SSE server for HTTP-based communication
	s.sseServer = server.NewSSEServer(s.mcpServer,
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
	)

	// Start the server (this blocks)
	if err := s.sseServer.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the MCP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("Stopping MCP server")
	s.running = false

	if s.sseServer != nil {
		if err := s.sseServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown MCP server: %w", err)
		}
	}

	return nil
}

// IsRunning returns true if the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the server's listening address
func (s *Server) Address() string {
	return s.addr
}

// registerTools registers all run query tools with the MCP server
func (s *Server) registerTools() {
	// list_runs - List stored collection runs
	s.mcpServer.AddTool(
		mcp.NewTool("list_runs",
			mcp.WithDescription("List stored collection runs, newest first. Returns run IDs, status and result counters."),
			mcp.WithString("kind",
				mcp.Description("Filter by run kind"),
				mcp.Enum("metrics", "classification"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of runs to return (default 20, max 100)"),
			),
		),
		s.handleListRuns,
	)

	// get_run_summary - Summarize one run
	s.mcpServer.AddTool(
		mcp.NewTool("get_run_summary",
			mcp.WithDescription("Get one run's outcome: its counters plus a quality gate breakdown for metrics runs or activity counts for classification runs."),
			mcp.WithString("run_id",
				mcp.Required(),
				mcp.Description("Run ID as returned by list_runs"),
			),
		),
		s.handleGetRunSummary,
	)

	// get_project_metrics - Metric history for one project
	s.mcpServer.AddTool(
		mcp.NewTool("get_project_metrics",
			mcp.WithDescription("Get the stored metric history of one project across runs, newest first. Includes quality gate status, coverage, issue counts and technical debt."),
			mcp.WithString("project_key",
				mcp.Required(),
				mcp.Description("SonarQube project key"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of snapshots to return (default 5, max 50)"),
			),
		),
		s.handleGetProjectMetrics,
	)

	// list_gate_failures - Projects failing their quality gate
	s.mcpServer.AddTool(
		mcp.NewTool("list_gate_failures",
			mcp.WithDescription("List the projects whose quality gate was ERROR in a run. Defaults to the latest completed metrics run."),
			mcp.WithString("run_id",
				mcp.Description("Run ID to inspect (default: latest completed metrics run)"),
			),
		),
		s.handleListGateFailures,
	)

	// classification_summary - Latest activity classification
	s.mcpServer.AddTool(
		mcp.NewTool("classification_summary",
			mcp.WithDescription("Summarize the latest completed activity classification: active and configured inactive counts, the active percentage and the list of inactive projects."),
		),
		s.handleClassificationSummary,
	)

	s.logger.Info("Registered MCP tools", "count", 5)
}
