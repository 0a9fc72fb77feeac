package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// runToInfo converts a stored run to its tool response form
func runToInfo(run *models.CollectionRun) RunInfo {
	info := RunInfo{
		RunID:         run.RunID,
		Kind:          run.Kind,
		Status:        run.Status,
		StartedAt:     run.StartedAt,
		TotalProjects: run.TotalProjects,
		Succeeded:     run.Succeeded,
		Failed:        run.Failed,
		ActiveCount:   run.ActiveCount,
		InactiveCount: run.InactiveCount,
		ErrorMessage:  run.ErrorMessage,
	}

	if run.CompletedAt != nil {
		t := run.CompletedAt.Format(time.RFC3339)
		info.CompletedAt = &t
	}

	return info
}

// snapshotToEntry converts a metrics snapshot to its tool response form.
// Ratings become letter grades and technical debt is rendered as days and
// hours so agents do not have to interpret raw minutes.
func snapshotToEntry(snap *models.MetricsSnapshot) ProjectMetricsEntry {
	return ProjectMetricsEntry{
		RunID:                  snap.RunID,
		ProjectKey:             snap.ProjectKey,
		ProjectName:            snap.ProjectName,
		QualityGateStatus:      snap.QualityGateStatus,
		Coverage:               snap.Coverage,
		DuplicatedLinesDensity: snap.DuplicatedLinesDensity,
		MaintainabilityRating:  models.RatingLabel(snap.MaintainabilityRating),
		ReliabilityRating:      models.RatingLabel(snap.ReliabilityRating),
		SecurityRating:         models.RatingLabel(snap.SecurityRating),
		Vulnerabilities:        snap.Vulnerabilities,
		Bugs:                   snap.Bugs,
		CodeSmells:             snap.CodeSmells,
		TechnicalDebt:          models.FormatTechnicalDebt(snap.TechnicalDebt),
		LinesOfCode:            snap.LinesOfCode,
		LastAnalysisDate:       snap.LastAnalysisDate,
		CollectedAt:            snap.CreatedAt,
	}
}

// handleListRuns implements the list_runs tool
func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("kind", "")
	limit := req.GetInt("limit", 20)
	if limit > 100 {
		limit = 100
	}

	runs, err := s.store.ListRuns(ctx, kind, limit)
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list runs: %v", err)), nil
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, runToInfo(run))
	}

	output := ListRunsOutput{
		Runs:    infos,
		Count:   len(infos),
		Message: fmt.Sprintf("Found %d stored runs", len(infos)),
	}

	return s.jsonResult(output)
}

// handleGetRunSummary implements the get_run_summary tool
func (s *Server) handleGetRunSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		s.logger.Error("Failed to get run", "run_id", runID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get run: %v", err)), nil
	}
	if run == nil {
		return mcp.NewToolResultError(fmt.Sprintf("Run not found: %s", runID)), nil
	}

	output := RunSummaryOutput{Run: runToInfo(run)}

	switch run.Kind {
	case models.RunKindMetrics:
		snaps, err := s.store.MetricsForRun(ctx, runID)
		if err != nil {
			s.logger.Error("Failed to load run snapshots", "run_id", runID, "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load run snapshots: %v", err)), nil
		}

		stats := MetricsRunStats{Collected: len(snaps)}
		for _, snap := range snaps {
			switch snap.QualityGateStatus {
			case models.GateStatusOK:
				stats.GatesPassed++
			case models.GateStatusError:
				stats.GatesFailed++
			case models.GateStatusWarn:
				stats.GatesWarned++
			}
		}
		output.Metrics = &stats
		output.Message = fmt.Sprintf("Metrics run %s (%s): %d projects collected, %d gates passed, %d failed, %d warned",
			runID, run.Status, stats.Collected, stats.GatesPassed, stats.GatesFailed, stats.GatesWarned)

	case models.RunKindClassification:
		stats := ClassificationRunStats{
			Active:   run.ActiveCount,
			Inactive: run.InactiveCount,
		}
		if run.TotalProjects > 0 {
			pct := float64(run.ActiveCount) / float64(run.TotalProjects) * 100
			stats.ActivePercentage = math.Round(pct*10) / 10
		}
		output.Classification = &stats
		output.Message = fmt.Sprintf("Classification run %s (%s): %d of %d projects active",
			runID, run.Status, run.ActiveCount, run.TotalProjects)

	default:
		output.Message = fmt.Sprintf("Run %s (%s)", runID, run.Status)
	}

	return s.jsonResult(output)
}

// handleGetProjectMetrics implements the get_project_metrics tool
func (s *Server) handleGetProjectMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey, err := req.RequireString("project_key")
	if err != nil {
		return mcp.NewToolResultError("project_key parameter is required"), nil
	}
	limit := req.GetInt("limit", 5)
	if limit > 50 {
		limit = 50
	}

	snaps, err := s.store.ProjectMetricsHistory(ctx, projectKey, limit)
	if err != nil {
		s.logger.Error("Failed to load project history", "project", projectKey, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load project history: %v", err)), nil
	}
	if len(snaps) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("No stored metrics for project: %s", projectKey)), nil
	}

	history := make([]ProjectMetricsEntry, 0, len(snaps))
	for _, snap := range snaps {
		history = append(history, snapshotToEntry(snap))
	}

	output := ProjectMetricsOutput{
		ProjectKey: projectKey,
		History:    history,
		Count:      len(history),
		Message:    fmt.Sprintf("Found %d snapshots for %s, newest first", len(history), projectKey),
	}

	return s.jsonResult(output)
}

// handleListGateFailures implements the list_gate_failures tool
func (s *Server) handleListGateFailures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := req.GetString("run_id", "")

	if runID == "" {
		run, err := s.store.LatestCompletedRun(ctx, models.RunKindMetrics)
		if err != nil {
			s.logger.Error("Failed to find latest metrics run", "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("Failed to find latest metrics run: %v", err)), nil
		}
		if run == nil {
			return mcp.NewToolResultError("No completed metrics runs stored yet"), nil
		}
		runID = run.RunID
	}

	snaps, err := s.store.GateFailuresForRun(ctx, runID)
	if err != nil {
		s.logger.Error("Failed to load gate failures", "run_id", runID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load gate failures: %v", err)), nil
	}

	failures := make([]ProjectMetricsEntry, 0, len(snaps))
	for _, snap := range snaps {
		failures = append(failures, snapshotToEntry(snap))
	}

	output := GateFailuresOutput{
		RunID:    runID,
		Failures: failures,
		Count:    len(failures),
		Message:  fmt.Sprintf("Found %d projects with a failing quality gate in run %s", len(failures), runID),
	}

	return s.jsonResult(output)
}

// handleClassificationSummary implements the classification_summary tool
func (s *Server) handleClassificationSummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.store.LatestCompletedRun(ctx, models.RunKindClassification)
	if err != nil {
		s.logger.Error("Failed to find latest classification run", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find latest classification run: %v", err)), nil
	}
	if run == nil {
		return mcp.NewToolResultError("No completed classification runs stored yet"), nil
	}

	snaps, err := s.store.ClassificationsForRun(ctx, run.RunID)
	if err != nil {
		s.logger.Error("Failed to load classifications", "run_id", run.RunID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load classifications: %v", err)), nil
	}

	active := 0
	inactive := make([]InactiveProjectInfo, 0)
	for _, snap := range snaps {
		if snap.Status == models.ClassificationActive {
			active++
			continue
		}
		inactive = append(inactive, InactiveProjectInfo{
			ProjectKey:       snap.ProjectKey,
			ProjectName:      snap.ProjectName,
			LastAnalysisDate: snap.LastAnalysisDate,
			LinesOfCode:      snap.LinesOfCode,
		})
	}

	total := len(snaps)
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(active)/float64(total)*1000) / 10
	}

	output := ClassificationSummaryOutput{
		RunID:            run.RunID,
		TotalProjects:    total,
		Active:           active,
		Inactive:         len(inactive),
		ActivePercentage: pct,
		InactiveProjects: inactive,
		Message: fmt.Sprintf("Latest classification (run %s): %d of %d projects active (%.1f%%)",
			run.RunID, active, total, pct),
	}
	if run.CompletedAt != nil {
		t := run.CompletedAt.Format(time.RFC3339)
		output.CompletedAt = &t
	}

	return s.jsonResult(output)
}

// jsonResult creates a JSON tool result
func (s *Server) jsonResult(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
