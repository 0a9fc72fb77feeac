package collector

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ProgressTracker receives completion events from collector workers. The
// collector calls Start once before the pool spins up, ItemCompleted from
// worker goroutines, and Finish after the pool drains. Implementations must
// be safe for concurrent use.
type ProgressTracker interface {
	// Start announces the number of projects the run will cover
	Start(total int)
	// ItemCompleted signals that one project finished, successfully or not
	ItemCompleted(projectKey string, failed bool)
	// Finish signals that every project has an outcome
	Finish()
}

// NoOpProgressTracker is a no-op implementation for when progress reporting
// is disabled
type NoOpProgressTracker struct{}

func (NoOpProgressTracker) Start(int)                  {}
func (NoOpProgressTracker) ItemCompleted(string, bool) {}
func (NoOpProgressTracker) Finish()                    {}

// ConsoleProgressTracker prints a completion line per project so
// interactive runs stay visible
type ConsoleProgressTracker struct {
	out io.Writer

	mu        sync.Mutex
	total     int
	completed int
}

// NewConsoleProgressTracker creates a tracker writing to out
func NewConsoleProgressTracker(out io.Writer) *ConsoleProgressTracker {
	return &ConsoleProgressTracker{out: out}
}

// Start announces the number of projects the run will cover
func (t *ConsoleProgressTracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.completed = 0
}

// ItemCompleted prints the completion line for one project
func (t *ConsoleProgressTracker) ItemCompleted(projectKey string, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	marker := ""
	if failed {
		marker = " (failed)"
	}
	fmt.Fprintf(t.out, "  [%d/%d] %s%s\n", t.completed, t.total, projectKey, marker)
}

// Finish is a no-op; the per-item lines already show completion
func (t *ConsoleProgressTracker) Finish() {}

// MultiProgressTracker fans completion events out to several trackers, so
// one run can feed the console and the run store at the same time
type MultiProgressTracker struct {
	trackers []ProgressTracker
}

// NewMultiProgressTracker creates a tracker forwarding to all of trackers
func NewMultiProgressTracker(trackers ...ProgressTracker) *MultiProgressTracker {
	return &MultiProgressTracker{trackers: trackers}
}

func (t *MultiProgressTracker) Start(total int) {
	for _, tracker := range t.trackers {
		tracker.Start(total)
	}
}

func (t *MultiProgressTracker) ItemCompleted(projectKey string, failed bool) {
	for _, tracker := range t.trackers {
		tracker.ItemCompleted(projectKey, failed)
	}
}

func (t *MultiProgressTracker) Finish() {
	for _, tracker := range t.trackers {
		tracker.Finish()
	}
}

// RunProgressStore is the slice of the storage API the run tracker needs to
// persist mid-run counters
type RunProgressStore interface {
	UpdateRunProgress(runID string, succeeded, failed int) error
}

// RunProgressTracker mirrors worker completions onto a persisted collection
// run row
type RunProgressTracker struct {
	store  RunProgressStore
	logger *slog.Logger
	runID  string

	mu        sync.Mutex
	succeeded int
	failed    int

	// Batching: accumulate completions and flush periodically
	pending   int
	batchSize int
}

// NewRunProgressTracker creates a database-backed progress tracker for the
// given run
func NewRunProgressTracker(store RunProgressStore, logger *slog.Logger, runID string) *RunProgressTracker {
	return &RunProgressTracker{
		store:     store,
		logger:    logger,
		runID:     runID,
		batchSize: 5, // Flush every 5 completions to reduce DB writes
	}
}

// Start resets the counters for a new run
func (t *RunProgressTracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.succeeded = 0
	t.failed = 0
	t.pending = 0
}

// ItemCompleted counts one finished project and flushes when the batch is
// full
func (t *RunProgressTracker) ItemCompleted(projectKey string, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if failed {
		t.failed++
	} else {
		t.succeeded++
	}
	t.pending++

	// Batch updates to reduce DB writes
	if t.pending >= t.batchSize {
		t.flushLocked()
	}
}

// Finish flushes any counters still pending
func (t *RunProgressTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
}

// flushLocked writes the counters through the store
// Must be called with mu held
func (t *RunProgressTracker) flushLocked() {
	if t.pending == 0 {
		return
	}

	if err := t.store.UpdateRunProgress(t.runID, t.succeeded, t.failed); err != nil {
		t.logger.Warn("Failed to persist run progress", "run_id", t.runID, "error", err)
	}
	t.pending = 0
}
