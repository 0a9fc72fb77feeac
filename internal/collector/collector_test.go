package collector

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
	"github.com/kuhlman-labs/sonar-collector/internal/sonarqube"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCollector(t *testing.T, serverURL string) *Collector {
	t.Helper()

	client, err := sonarqube.NewClient(sonarqube.ClientConfig{
		BaseURL: serverURL,
		Token:   "test-token",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	return NewCollector(client, testLogger())
}

func stringPtr(s string) *string {
	return &s
}

func gateJSON(status string) string {
	return fmt.Sprintf(`{"projectStatus":{"id":"gate-1","name":"Sonar way","status":%q,"conditions":[]}}`, status)
}

func measuresJSON(key string, metrics map[string]string) string {
	parts := make([]string, 0, len(metrics))
	for metric, value := range metrics {
		parts = append(parts, fmt.Sprintf(`{"metric":%q,"value":%q}`, metric, value))
	}
	return fmt.Sprintf(`{"component":{"key":%q,"measures":[%s]}}`, key, strings.Join(parts, ","))
}

// recordingTracker captures progress callbacks for assertions
type recordingTracker struct {
	mu       sync.Mutex
	started  int
	items    map[string]bool
	finished bool
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{items: make(map[string]bool)}
}

func (t *recordingTracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = total
}

func (t *recordingTracker) ItemCompleted(projectKey string, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[projectKey] = failed
}

func (t *recordingTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
}

func TestCollectQualityMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/qualitygates/project_status", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("projectKey") == "svc-billing" {
			fmt.Fprint(w, gateJSON("ERROR"))
			return
		}
		fmt.Fprint(w, gateJSON("OK"))
	})
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("component")
		fmt.Fprint(w, measuresJSON(key, map[string]string{
			"coverage":    "85.5",
			"bugs":        "3",
			"ncloc":       "1200",
			"sqale_index": "600",
		}))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)
	tracker := newRecordingTracker()
	c.SetProgressTracker(tracker)

	projects := []models.Project{
		{Key: "svc-billing", Name: "Billing Service"},
		{Key: "app-web", Name: "Web App", LastAnalysisDate: stringPtr("2024-06-10T12:00:00+0000")},
		{Key: "lib-core", Name: "Core Library"},
	}

	result, err := c.CollectQualityMetrics(context.Background(), projects)
	if err != nil {
		t.Fatalf("CollectQualityMetrics() error = %v", err)
	}

	if result.Total() != len(projects) {
		t.Errorf("Total() = %d, want %d", result.Total(), len(projects))
	}
	if len(result.Failures) != 0 {
		t.Fatalf("expected no failures, got %+v", result.Failures)
	}

	wantOrder := []string{"app-web", "lib-core", "svc-billing"}
	for i, want := range wantOrder {
		if result.Metrics[i].ProjectKey != want {
			t.Errorf("Metrics[%d].ProjectKey = %q, want %q", i, result.Metrics[i].ProjectKey, want)
		}
	}

	byKey := make(map[string]models.QualityMetrics)
	for _, m := range result.Metrics {
		byKey[m.ProjectKey] = m
	}

	if got := byKey["svc-billing"].QualityGateStatus; got != models.GateStatusError {
		t.Errorf("svc-billing gate status = %q, want %q", got, models.GateStatusError)
	}
	if got := byKey["app-web"].QualityGateStatus; got != models.GateStatusOK {
		t.Errorf("app-web gate status = %q, want %q", got, models.GateStatusOK)
	}
	if byKey["app-web"].Coverage == nil || *byKey["app-web"].Coverage != "85.5" {
		t.Errorf("app-web coverage = %v, want 85.5", byKey["app-web"].Coverage)
	}
	if byKey["app-web"].TechnicalDebt == nil || *byKey["app-web"].TechnicalDebt != "600" {
		t.Errorf("app-web technical debt = %v, want 600", byKey["app-web"].TechnicalDebt)
	}
	if byKey["app-web"].MaintainabilityRating != nil {
		t.Error("expected absent maintainability rating to stay nil")
	}
	if byKey["app-web"].LastAnalysisDate == nil || *byKey["app-web"].LastAnalysisDate != "2024-06-10T12:00:00+0000" {
		t.Errorf("app-web last analysis = %v, want the listed date", byKey["app-web"].LastAnalysisDate)
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if tracker.started != len(projects) {
		t.Errorf("tracker started with total %d, want %d", tracker.started, len(projects))
	}
	if len(tracker.items) != len(projects) {
		t.Errorf("tracker saw %d items, want %d", len(tracker.items), len(projects))
	}
	if !tracker.finished {
		t.Error("tracker never finished")
	}
}

func TestCollectQualityMetricsDegradedData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/qualitygates/project_status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)

	result, err := c.CollectQualityMetrics(context.Background(), []models.Project{{Key: "p1", Name: "P1"}})
	if err != nil {
		t.Fatalf("CollectQualityMetrics() error = %v", err)
	}

	if len(result.Metrics) != 1 || len(result.Failures) != 0 {
		t.Fatalf("got %d metrics / %d failures, want 1 / 0", len(result.Metrics), len(result.Failures))
	}

	m := result.Metrics[0]
	if m.QualityGateStatus != models.GateStatusNone {
		t.Errorf("gate status = %q, want %q", m.QualityGateStatus, models.GateStatusNone)
	}
	if m.Coverage != nil || m.Bugs != nil || m.LinesOfCode != nil {
		t.Error("expected degraded fetch to leave metric fields nil")
	}
}

func TestCollectQualityMetricsTimeoutIsolation(t *testing.T) {
	const slowKey = "svc-slow"

	stall := func(r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/qualitygates/project_status", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("projectKey") == slowKey {
			stall(r)
			return
		}
		fmt.Fprint(w, gateJSON("OK"))
	})
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("component")
		if key == slowKey {
			stall(r)
			return
		}
		fmt.Fprint(w, measuresJSON(key, map[string]string{"ncloc": "100"}))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)
	c.SetItemTimeout(100 * time.Millisecond)

	projects := []models.Project{
		{Key: "svc-a", Name: "A"},
		{Key: slowKey, Name: "Slow"},
		{Key: "svc-b", Name: "B"},
	}

	result, err := c.CollectQualityMetrics(context.Background(), projects)
	if err != nil {
		t.Fatalf("CollectQualityMetrics() error = %v", err)
	}

	if result.Total() != len(projects) {
		t.Errorf("Total() = %d, want %d", result.Total(), len(projects))
	}
	if len(result.Metrics) != 2 {
		t.Fatalf("collected %d projects, want 2 (failures: %+v)", len(result.Metrics), result.Failures)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(result.Failures))
	}
	if result.Failures[0].ProjectKey != slowKey {
		t.Errorf("failed project = %q, want %q", result.Failures[0].ProjectKey, slowKey)
	}
	if result.Failures[0].Reason == "" {
		t.Error("failure reason should not be empty")
	}
}

type recordingSink struct {
	mu   sync.Mutex
	keys []string
}

func (s *recordingSink) MetricCollected(m models.QualityMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, m.ProjectKey)
}

func TestCollectQualityMetricsStreamsToSink(t *testing.T) {
	const slowKey = "svc-slow"

	stall := func(r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/qualitygates/project_status", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("projectKey") == slowKey {
			stall(r)
			return
		}
		fmt.Fprint(w, gateJSON("OK"))
	})
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("component")
		if key == slowKey {
			stall(r)
			return
		}
		fmt.Fprint(w, measuresJSON(key, map[string]string{"ncloc": "100"}))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)
	c.SetItemTimeout(100 * time.Millisecond)
	sink := &recordingSink{}
	c.SetMetricsSink(sink)

	projects := []models.Project{
		{Key: "svc-a", Name: "A"},
		{Key: slowKey, Name: "Slow"},
		{Key: "svc-b", Name: "B"},
	}

	result, err := c.CollectQualityMetrics(context.Background(), projects)
	if err != nil {
		t.Fatalf("CollectQualityMetrics() error = %v", err)
	}
	if len(result.Metrics) != 2 {
		t.Fatalf("collected %d projects, want 2", len(result.Metrics))
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	sort.Strings(sink.keys)
	if len(sink.keys) != 2 || sink.keys[0] != "svc-a" || sink.keys[1] != "svc-b" {
		t.Errorf("sink received %v, want only the two successful projects", sink.keys)
	}
}

func TestCollectQualityMetricsEmptyInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s", r.URL.Path)
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL)

	result, err := c.CollectQualityMetrics(context.Background(), nil)
	if err != nil {
		t.Fatalf("CollectQualityMetrics() error = %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("Total() = %d, want 0", result.Total())
	}
}

func TestCollectQualityMetricsCanceledContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/qualitygates/project_status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gateJSON("OK"))
	})
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, measuresJSON(r.URL.Query().Get("component"), nil))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := c.CollectQualityMetrics(ctx, []models.Project{
		{Key: "p1", Name: "P1"},
		{Key: "p2", Name: "P2"},
	})
	if err == nil {
		t.Fatal("expected an error for a canceled context")
	}
	if result == nil || result.Total() != 2 {
		t.Fatalf("canceled run must still produce one outcome per project, got %+v", result)
	}
	if len(result.Failures) != 2 {
		t.Errorf("got %d failures, want 2", len(result.Failures))
	}
}

func TestCollectorConcurrencyCap(t *testing.T) {
	const workers = 3

	var mu sync.Mutex
	inFlight := 0
	peak := 0

	enter := func() {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
	}
	leave := func() {
		mu.Lock()
		inFlight--
		mu.Unlock()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/qualitygates/project_status", func(w http.ResponseWriter, r *http.Request) {
		enter()
		time.Sleep(20 * time.Millisecond)
		leave()
		fmt.Fprint(w, gateJSON("OK"))
	})
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		enter()
		time.Sleep(20 * time.Millisecond)
		leave()
		fmt.Fprint(w, measuresJSON(r.URL.Query().Get("component"), map[string]string{"ncloc": "10"}))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)
	c.SetWorkers(workers)

	projects := make([]models.Project, 12)
	for i := range projects {
		projects[i] = models.Project{Key: fmt.Sprintf("proj-%02d", i), Name: fmt.Sprintf("Project %d", i)}
	}

	result, err := c.CollectQualityMetrics(context.Background(), projects)
	if err != nil {
		t.Fatalf("CollectQualityMetrics() error = %v", err)
	}
	if result.Total() != len(projects) {
		t.Errorf("Total() = %d, want %d", result.Total(), len(projects))
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > workers {
		t.Errorf("observed %d concurrent fetches, want at most %d", peak, workers)
	}
	if peak == 0 {
		t.Error("instrumentation never observed a request")
	}
}

func TestClassifyProjects(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -5).Format(time.RFC3339)
	stale := time.Now().AddDate(0, 0, -90).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("component")
		if key == "svc-broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, measuresJSON(key, map[string]string{
			"ncloc":    "1200",
			"coverage": "74.2",
			"bugs":     "2",
		}))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)

	projects := []models.Project{
		{Key: "svc-active", Name: "Active Service", LastAnalysisDate: &recent},
		{Key: "svc-stale", Name: "Stale Service", LastAnalysisDate: &stale},
		{Key: "svc-broken", Name: "Broken Service", LastAnalysisDate: &recent},
	}

	result, err := c.ClassifyProjects(context.Background(), projects)
	if err != nil {
		t.Fatalf("ClassifyProjects() error = %v", err)
	}

	if result.Total != len(projects) {
		t.Errorf("Total = %d, want %d", result.Total, len(projects))
	}
	if got := result.ActiveCount() + result.InactiveCount(); got != len(projects) {
		t.Errorf("active+inactive = %d, want %d", got, len(projects))
	}
	if result.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1 (active: %+v)", result.ActiveCount(), result.Active)
	}

	active := result.Active[0]
	if active.ProjectKey != "svc-active" {
		t.Errorf("active project = %q, want svc-active", active.ProjectKey)
	}
	if active.LinesOfCode != 1200 {
		t.Errorf("active lines of code = %d, want 1200", active.LinesOfCode)
	}
	if active.Coverage == nil || *active.Coverage != 74.2 {
		t.Errorf("active coverage = %v, want 74.2", active.Coverage)
	}

	inactive := make(map[string]models.ProjectClassification)
	for _, p := range result.Inactive {
		inactive[p.ProjectKey] = p
	}

	staleProject, ok := inactive["svc-stale"]
	if !ok {
		t.Fatal("svc-stale missing from inactive list")
	}
	if staleProject.HasRecentAnalysis {
		t.Error("svc-stale should not count as recently analyzed")
	}
	if !staleProject.HasMetrics {
		t.Error("svc-stale has ncloc and should report metrics")
	}

	brokenProject, ok := inactive["svc-broken"]
	if !ok {
		t.Fatal("svc-broken missing from inactive list")
	}
	if !brokenProject.HasRecentAnalysis {
		t.Error("svc-broken has a recent analysis date")
	}
	if brokenProject.HasMetrics {
		t.Error("svc-broken's failed fetch should leave it without metrics")
	}
}

func TestClassifyProjectsTimeout(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -2).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCollector(t, server.URL)
	c.SetItemTimeout(50 * time.Millisecond)

	result, err := c.ClassifyProjects(context.Background(), []models.Project{
		{Key: "svc-slow", Name: "Slow Service", LastAnalysisDate: &recent},
	})
	if err != nil {
		t.Fatalf("ClassifyProjects() error = %v", err)
	}

	if result.Total != 1 || result.InactiveCount() != 1 {
		t.Fatalf("expected the timed-out project to classify as inactive, got %+v", result)
	}

	got := result.Inactive[0]
	if got.Status != models.ClassificationInactive {
		t.Errorf("Status = %q, want %q", got.Status, models.ClassificationInactive)
	}
	if got.HasMetrics {
		t.Error("timed-out fetch must not report metrics")
	}
}

func TestClassifyProjectsEmptyInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s", r.URL.Path)
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL)

	result, err := c.ClassifyProjects(context.Background(), nil)
	if err != nil {
		t.Fatalf("ClassifyProjects() error = %v", err)
	}
	if result.Total != 0 || result.ActiveCount() != 0 || result.InactiveCount() != 0 {
		t.Errorf("empty input should yield an empty result, got %+v", result)
	}
}

func TestCollectorSetters(t *testing.T) {
	c := NewCollector(nil, testLogger())

	if c.workers != defaultWorkers {
		t.Errorf("default workers = %d, want %d", c.workers, defaultWorkers)
	}
	if c.itemTimeout != defaultItemTimeout {
		t.Errorf("default item timeout = %s, want %s", c.itemTimeout, defaultItemTimeout)
	}

	c.SetWorkers(3)
	if c.workers != 3 {
		t.Errorf("workers = %d, want 3", c.workers)
	}
	c.SetWorkers(0)
	c.SetWorkers(-1)
	if c.workers != 3 {
		t.Errorf("non-positive worker counts must be ignored, got %d", c.workers)
	}

	c.SetItemTimeout(5 * time.Second)
	if c.itemTimeout != 5*time.Second {
		t.Errorf("item timeout = %s, want 5s", c.itemTimeout)
	}
	c.SetItemTimeout(0)
	if c.itemTimeout != 5*time.Second {
		t.Errorf("non-positive timeouts must be ignored, got %s", c.itemTimeout)
	}

	tracker := newRecordingTracker()
	c.SetProgressTracker(tracker)
	if c.progress != ProgressTracker(tracker) {
		t.Error("tracker was not applied")
	}
	c.SetProgressTracker(nil)
	if c.progress != ProgressTracker(tracker) {
		t.Error("nil tracker must be ignored")
	}
}

func TestConsoleProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewConsoleProgressTracker(&buf)

	tracker.Start(2)
	tracker.ItemCompleted("svc-a", false)
	tracker.ItemCompleted("svc-b", true)
	tracker.Finish()

	out := buf.String()
	if !strings.Contains(out, "[1/2] svc-a") {
		t.Errorf("output missing first completion line: %q", out)
	}
	if !strings.Contains(out, "[2/2] svc-b (failed)") {
		t.Errorf("output missing failed completion line: %q", out)
	}
}

type fakeRunStore struct {
	mu    sync.Mutex
	calls [][2]int
	err   error
}

func (s *fakeRunStore) UpdateRunProgress(runID string, succeeded, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, [2]int{succeeded, failed})
	return nil
}

func TestRunProgressTrackerBatchesFlushes(t *testing.T) {
	store := &fakeRunStore{}
	tracker := NewRunProgressTracker(store, testLogger(), "run-1")

	tracker.Start(7)
	for i := 0; i < 5; i++ {
		tracker.ItemCompleted(fmt.Sprintf("p%d", i), false)
	}
	tracker.ItemCompleted("p5", true)
	tracker.ItemCompleted("p6", true)
	tracker.Finish()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.calls) != 2 {
		t.Fatalf("got %d flushes, want 2 (full batch plus final)", len(store.calls))
	}
	if store.calls[0] != [2]int{5, 0} {
		t.Errorf("first flush = %v, want [5 0]", store.calls[0])
	}
	if store.calls[1] != [2]int{5, 2} {
		t.Errorf("final flush = %v, want [5 2]", store.calls[1])
	}
}

func TestRunProgressTrackerFinishWithoutPending(t *testing.T) {
	store := &fakeRunStore{}
	tracker := NewRunProgressTracker(store, testLogger(), "run-1")

	tracker.Start(0)
	tracker.Finish()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.calls) != 0 {
		t.Errorf("Finish with no completions should not write, got %d calls", len(store.calls))
	}
}

func TestRunProgressTrackerStoreError(t *testing.T) {
	store := &fakeRunStore{err: fmt.Errorf("db closed")}
	tracker := NewRunProgressTracker(store, testLogger(), "run-1")

	tracker.Start(5)
	for i := 0; i < 5; i++ {
		tracker.ItemCompleted(fmt.Sprintf("p%d", i), false)
	}
	tracker.Finish()
	// Store failures are logged and must not panic or block the run.
}

func TestMultiProgressTracker(t *testing.T) {
	first := newRecordingTracker()
	second := newRecordingTracker()
	tracker := NewMultiProgressTracker(first, second)

	tracker.Start(2)
	tracker.ItemCompleted("svc-a", false)
	tracker.ItemCompleted("svc-b", true)
	tracker.Finish()

	for i, rec := range []*recordingTracker{first, second} {
		rec.mu.Lock()
		if rec.started != 2 {
			t.Errorf("tracker %d: Start got %d, want 2", i, rec.started)
		}
		if failed, ok := rec.items["svc-a"]; !ok || failed {
			t.Errorf("tracker %d: svc-a = (%v, %v), want success", i, failed, ok)
		}
		if failed, ok := rec.items["svc-b"]; !ok || !failed {
			t.Errorf("tracker %d: svc-b = (%v, %v), want failure", i, failed, ok)
		}
		if !rec.finished {
			t.Errorf("tracker %d: Finish not forwarded", i)
		}
		rec.mu.Unlock()
	}
}
