// Package metrics exposes Prometheus collectors for the HTTP layer and the prediction
// pipeline.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PredictionTotal   *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec

	StorageOperationTotal *prometheus.CounterVec
	EventPublishTotal     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Collectors that reg already
// knows are reused, so calling New twice against one registry is safe.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		PredictionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction requests by kind and outcome",
		}, []string{"kind", "outcome"}),

		InferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "model_inference_duration_seconds",
			Help:    "Model inference duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),

		StorageOperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Total number of storage operations",
		}, []string{"operation", "status"}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_publish_total",
			Help: "Total number of event publish operations",
		}, []string{"event_type", "status"}),
	}

	m.HTTPRequestTotal = registerOrGet(reg, m.HTTPRequestTotal)
	m.HTTPRequestDuration = registerOrGet(reg, m.HTTPRequestDuration)
	m.PredictionTotal = registerOrGet(reg, m.PredictionTotal)
	m.InferenceDuration = registerOrGet(reg, m.InferenceDuration)
	m.StorageOperationTotal = registerOrGet(reg, m.StorageOperationTotal)
	m.EventPublishTotal = registerOrGet(reg, m.EventPublishTotal)
	return m
}

func registerOrGet[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) ObserveRequest(method, path, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePrediction(kind, outcome string) {
	if m == nil {
		return
	}
	m.PredictionTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveInference(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.InferenceDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveStorage(operation string, err error) {
	if m == nil {
		return
	}
	m.StorageOperationTotal.WithLabelValues(operation, status(err)).Inc()
}

func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.EventPublishTotal.WithLabelValues(eventType, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
