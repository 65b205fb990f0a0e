package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewDetectorCollector(reg)
	if err != nil {
		t.Fatalf("NewDetectorCollector: %v", err)
	}

	collector.ObserveRun(25*time.Millisecond, 4, 7)
	collector.ObserveRun(5*time.Millisecond, 2, 0)

	if got := testutil.ToFloat64(collector.Runs); got != 2 {
		t.Fatalf("deconflict_runs_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.ConflictsTotal); got != 7 {
		t.Fatalf("deconflict_conflicts_total = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.ConflictsLastRun); got != 0 {
		t.Fatalf("deconflict_conflicts_last_run = %v, want 0", got)
	}
	if got := testutil.ToFloat64(collector.MissionsLastRun); got != 2 {
		t.Fatalf("deconflict_missions_last_run = %v, want 2", got)
	}
	if count := histogramSampleCount(t, reg, "deconflict_run_duration_seconds", nil); count != 2 {
		t.Fatalf("deconflict_run_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestObservePairLabelsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewDetectorCollector(reg)
	if err != nil {
		t.Fatalf("NewDetectorCollector: %v", err)
	}

	collector.ObservePair("compared", 120, 3)
	collector.ObservePair("compared", 30, 0)
	collector.ObservePair("disjoint", 0, 0)

	if got := testutil.ToFloat64(collector.MissionPairs.WithLabelValues("compared")); got != 2 {
		t.Fatalf("compared pairs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.MissionPairs.WithLabelValues("disjoint")); got != 1 {
		t.Fatalf("disjoint pairs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.PairEvaluations); got != 150 {
		t.Fatalf("deconflict_pair_evaluations_total = %v, want 150", got)
	}
	if got := testutil.ToFloat64(collector.PairConflicts.WithLabelValues("compared")); got != 3 {
		t.Fatalf("deconflict_pair_conflicts_total{outcome=compared} = %v, want 3", got)
	}
}

func TestNewDetectorCollectorReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewDetectorCollector(reg)
	if err != nil {
		t.Fatalf("first NewDetectorCollector: %v", err)
	}
	second, err := NewDetectorCollector(reg)
	if err != nil {
		t.Fatalf("second NewDetectorCollector: %v", err)
	}

	first.ObserveTrajectory(101)
	second.ObserveTrajectory(11)

	if count := histogramSampleCount(t, reg, "deconflict_trajectory_samples", nil); count != 2 {
		t.Fatalf("deconflict_trajectory_samples sample_count = %d, want 2", count)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *DetectorCollector
	c.ObserveRun(time.Second, 1, 1)
	c.ObservePair("compared", 1, 1)
	c.ObserveTrajectory(1)
}

func TestMetricsHandlerExposesDetectorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewDetectorCollector(reg)
	if err != nil {
		t.Fatalf("NewDetectorCollector: %v", err)
	}
	collector.ObserveRun(time.Millisecond, 3, 1)
	collector.ObservePair("self", 0, 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"deconflict_runs_total",
		"deconflict_run_duration_seconds",
		"deconflict_missions_last_run",
		"deconflict_mission_pairs_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
	if !strings.Contains(body, `outcome="self"`) {
		t.Fatalf("/metrics output missing outcome label: %s", body)
	}
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewDetectorCollector(reg)
	if err != nil {
		t.Fatalf("NewDetectorCollector: %v", err)
	}
	collector.ObserveRun(time.Millisecond, 2, 5)

	path := filepath.Join(t.TempDir(), "deconflict.prom")
	if err := collector.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "deconflict_conflicts_total 5") {
		t.Fatalf("textfile missing conflict total:\n%s", data)
	}
}

func TestApplyTracingEnv(t *testing.T) {
	t.Setenv("DECONFLICT_TRACING_ENABLED", "TRUE")
	t.Setenv("DECONFLICT_TRACING_EXPORTER", "OTLP")
	t.Setenv("DECONFLICT_TRACING_SAMPLE_RATIO", "7")
	t.Setenv("DECONFLICT_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled {
		t.Fatalf("Enabled = false, want true")
	}
	if cfg.Exporter != "otlp" {
		t.Fatalf("Exporter = %q, want otlp", cfg.Exporter)
	}
	if cfg.SampleRatio != 1.0 {
		t.Fatalf("SampleRatio = %v, want out-of-range value ignored", cfg.SampleRatio)
	}
	if cfg.Endpoint != "collector:4317" {
		t.Fatalf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.ServiceName != "deconflict" {
		t.Fatalf("ServiceName = %q, want default", cfg.ServiceName)
	}
}

func TestInitTracingDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), DefaultTracingConfig(), nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"
	if _, err := InitTracing(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
