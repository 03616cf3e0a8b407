package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveRequest(http.MethodGet, "200", 0.05)
	m.ObserveRequest(http.MethodGet, "200", 0.07)

	if got := counterValue(t, reg, "medvault_client_requests_total"); got != 2 {
		t.Fatalf("requests_total: got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(http.MethodPost, "fault", 0.1)
}

func TestClientCountsRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	reg := prometheus.NewRegistry()
	c := New(ts.URL, time.Second, nil, nil, NewMetrics(reg))
	if err := c.DoJSON(context.Background(), http.MethodGet, "/patients", nil, nil); err != nil {
		t.Fatalf("DoJSON error: %v", err)
	}
	if got := counterValue(t, reg, "medvault_client_requests_total"); got != 1 {
		t.Fatalf("requests_total: got %v", got)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return sumCounters(mf)
		}
	}
	return 0
}

func sumCounters(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}
