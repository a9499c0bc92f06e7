package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue sums the counter samples of family name whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePrediction("crop", "success")
	m.ObservePrediction("crop", "success")
	m.ObservePrediction("disease", "invalid")
	m.ObserveStorage("save_crop", nil)
	m.ObserveStorage("save_crop", errors.New("down"))
	m.ObserveEvent("prediction.crop", nil)
	m.ObserveRequest("GET", "/health", "200", 10*time.Millisecond)
	m.ObserveInference("crop", time.Millisecond)

	cases := []struct {
		name   string
		family string
		labels map[string]string
		want   float64
	}{
		{"crop successes", "predictions_total", map[string]string{"kind": "crop", "outcome": "success"}, 2},
		{"all predictions", "predictions_total", nil, 3},
		{"storage errors", "storage_operations_total", map[string]string{"status": "error"}, 1},
		{"events", "event_publish_total", map[string]string{"status": "ok"}, 1},
		{"requests", "http_requests_total", map[string]string{"path": "/health"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := counterValue(t, reg, tc.family, tc.labels); got != tc.want {
				t.Errorf("%s = %v, want %v", tc.family, got, tc.want)
			}
		})
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.ObservePrediction("fertilizer", "success")
	second.ObservePrediction("fertilizer", "success")
	if got := counterValue(t, reg, "predictions_total", map[string]string{"kind": "fertilizer"}); got != 2 {
		t.Errorf("fertilizer predictions = %v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePrediction("crop", "success")
	m.ObserveRequest("GET", "/", "200", time.Second)
	m.ObserveInference("crop", time.Second)
	m.ObserveStorage("op", nil)
	m.ObserveEvent("e", nil)
}
