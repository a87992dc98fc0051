package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"contrarian-lab/internal/backtest"
)

func TestMetrics_Recorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.SignalsGenerated("W", 3)
	m.SignalsGenerated("W", 2)
	m.SignalsDropped("W", "amplitude", 4)
	m.SymbolSkipped("M")
	m.CohortAllocated(1.4, true)
	m.CohortAllocated(0.3, false)
	m.TradesExecuted(5)
	m.RunCompleted(backtest.StatusSuccess, 250*time.Millisecond)

	if got := testutil.ToFloat64(m.Candidates.WithLabelValues("W")); got != 5 {
		t.Errorf("Expected 5 candidates, got %v", got)
	}
	if got := testutil.ToFloat64(m.Drops.WithLabelValues("W", "amplitude")); got != 4 {
		t.Errorf("Expected 4 drops, got %v", got)
	}
	if got := testutil.ToFloat64(m.Skips.WithLabelValues("M")); got != 1 {
		t.Errorf("Expected 1 skip, got %v", got)
	}
	if got := testutil.ToFloat64(m.Cohorts.WithLabelValues("true")); got != 1 {
		t.Errorf("Expected 1 delevered cohort, got %v", got)
	}
	if got := testutil.ToFloat64(m.Trades); got != 5 {
		t.Errorf("Expected 5 trades, got %v", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues(backtest.StatusSuccess)); got != 1 {
		t.Errorf("Expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got == 0 {
		t.Error("Expected last success timestamp to be set")
	}
}

func TestMetrics_FailedRunKeepsLastSuccess(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())
	m.RunCompleted(backtest.StatusEmpty, time.Second)

	if got := testutil.ToFloat64(m.LastSuccess); got != 0 {
		t.Errorf("Expected no success timestamp, got %v", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues(backtest.StatusEmpty)); got != 1 {
		t.Errorf("Expected 1 empty run, got %v", got)
	}
}

func TestMetrics_RecordDBQuery(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())
	m.RecordDBQuery("postgres", "insert_run", time.Millisecond, nil)
	m.RecordDBQuery("postgres", "insert_run", time.Millisecond, io.ErrUnexpectedEOF)
	m.RecordIngest("daily", 120)

	if got := testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert_run")); got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(m.PointsIngested.WithLabelValues("daily")); got != 120 {
		t.Errorf("Expected 120 points, got %v", got)
	}
}

func TestNewServer_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.TradesExecuted(2)

	srv := httptest.NewServer(NewServer(":0", reg).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "test_portfolio_trades_executed_total 2") {
		t.Errorf("Expected trades counter in output, got:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}
