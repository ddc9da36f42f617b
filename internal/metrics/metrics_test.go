package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()

	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T is not a metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestQuery(t *testing.T) {
	m := New()

	m.Query("java", ResultOnline, 12)
	m.Query("java", ResultOffline, 0)
	m.Query("java", ResultOffline, 0)

	if got := counterValue(t, m.queries.WithLabelValues("java", ResultOffline)); got != 2 {
		t.Errorf("offline = %v, want 2", got)
	}
	if got := histogramCount(t, m.queryLatency.WithLabelValues("java")); got != 1 {
		t.Errorf("latency samples = %d, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Query("java", ResultOnline, 1)
	m.Request("GET /api/java", 200)
	m.Dropped()
	m.Recheck(ResultOnline)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Request("GET /api/java", 200)
	m.Dropped()
	m.Recheck(ResultOffline)

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`mcping_http_requests_total{code="200",route="GET /api/java"} 1`,
		`mcping_track_dropped_total 1`,
		`mcping_rechecks_total{result="offline"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition lacks %q", want)
		}
	}
}
