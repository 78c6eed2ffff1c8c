package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics records outcomes of calls against the remote REST backend.
type RequestMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	inflight *prometheus.GaugeVec
}

// NewRequestMetrics registers the request metrics on the provided registerer.
func NewRequestMetrics(reg prometheus.Registerer) *RequestMetrics {
	if reg == nil {
		return &RequestMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_request_duration_seconds",
		Help:    "Duration of REST backend requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource", "op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_request_success",
		Help: "Successful REST backend requests.",
	}, []string{"resource", "op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_request_failure",
		Help: "Failed REST backend requests.",
	}, []string{"resource", "op"})
	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "api_requests_in_flight",
		Help: "REST backend requests currently awaiting a response.",
	}, []string{"resource"})
	reg.MustRegister(duration, success, failure, inflight)
	return &RequestMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		inflight: inflight,
	}
}

// ObserveDuration records the duration of a request.
func (r *RequestMetrics) ObserveDuration(resource, op string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(resource), normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter.
func (r *RequestMetrics) IncSuccess(resource, op string) {
	if r == nil || r.success == nil {
		return
	}
	r.success.WithLabelValues(normalizeLabel(resource), normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter.
func (r *RequestMetrics) IncFailure(resource, op string) {
	if r == nil || r.failure == nil {
		return
	}
	r.failure.WithLabelValues(normalizeLabel(resource), normalizeLabel(op)).Inc()
}

// TrackInFlight marks a request as started and returns its completion callback.
func (r *RequestMetrics) TrackInFlight(resource string) func() {
	if r == nil || r.inflight == nil {
		return func() {}
	}
	gauge := r.inflight.WithLabelValues(normalizeLabel(resource))
	gauge.Inc()
	return gauge.Dec
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
