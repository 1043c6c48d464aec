package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	eventsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "capture",
			Name:      "events_total",
			Help:      "Number of records appended to the event buffer.",
		}, []string{"type"},
	)
	flushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "flush",
			Name:      "flushes_total",
			Help:      "Number of flush triggers that drained a non-empty buffer.",
		}, []string{"trigger"},
	)
	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tracker",
			Subsystem: "flush",
			Name:      "batch_size",
			Help:      "Number of records per delivered batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	bufferedEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tracker",
			Subsystem: "capture",
			Name:      "buffered_events",
			Help:      "Records currently waiting for the next flush.",
		},
	)
	batchesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "delivery",
			Name:      "batches_total",
			Help:      "Number of batches accepted by a transport.",
		}, []string{"transport"},
	)
	fallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "delivery",
			Name:      "fallbacks_total",
			Help:      "Number of batches the beacon could not take.",
		},
	)
	dropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "delivery",
			Name:      "dropped_total",
			Help:      "Number of batches lost because every transport failed.",
		},
	)
	metaReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "session",
			Name:      "meta_reports_total",
			Help:      "Session metadata submissions by result.",
		}, []string{"result"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{eventsCaptured, flushes, batchSize, bufferedEvents, batchesDelivered, fallbacks, dropped, metaReports}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncCaptured(eventType string) {
	if regOK.Load() {
		eventsCaptured.WithLabelValues(eventType).Inc()
	}
}

func ObserveFlush(trigger string, size int) {
	if regOK.Load() {
		flushes.WithLabelValues(trigger).Inc()
		batchSize.Observe(float64(size))
	}
}

func SetBuffered(n int) {
	if regOK.Load() {
		bufferedEvents.Set(float64(n))
	}
}

func IncDelivered(transport string) {
	if regOK.Load() {
		batchesDelivered.WithLabelValues(transport).Inc()
	}
}

func IncFallback() {
	if regOK.Load() {
		fallbacks.Inc()
	}
}

func IncDropped() {
	if regOK.Load() {
		dropped.Inc()
	}
}

func IncMetaReport(result string) {
	if regOK.Load() {
		metaReports.WithLabelValues(result).Inc()
	}
}
