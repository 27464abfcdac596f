// Package metrics exposes console operation counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"archon/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Recorder counts operations and notifications on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	started       *prometheus.CounterVec
	finished      *prometheus.CounterVec
	refused       *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	notifications *prometheus.CounterVec
}

// New builds a Recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.started = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "archon",
		Subsystem: "console",
		Name:      "operations_started_total",
		Help:      "Background operations spawned",
	}, []string{"kind"})

	r.finished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "archon",
		Subsystem: "console",
		Name:      "operations_finished_total",
		Help:      "Background operations that reached a terminal state",
	}, []string{"kind", "outcome"})

	r.refused = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "archon",
		Subsystem: "console",
		Name:      "operations_refused_total",
		Help:      "Operations refused because a conflicting one was in flight",
	}, []string{"kind"})

	r.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "archon",
		Subsystem: "console",
		Name:      "operation_duration_seconds",
		Help:      "Time from spawn to merged completion",
		Buckets:   histogramBuckets,
	}, []string{"kind"})

	r.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "archon",
		Subsystem: "console",
		Name:      "operations_in_flight",
		Help:      "Operations spawned but not yet completed",
	})

	r.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "archon",
		Subsystem: "console",
		Name:      "notifications_total",
		Help:      "Notifications shown to the operator",
	}, []string{"level"})

	r.registry.MustRegister(r.started, r.finished, r.refused, r.duration, r.inFlight, r.notifications)
	return r
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) OperationStarted(kind string) {
	r.started.With(prometheus.Labels{"kind": kind}).Inc()
	r.inFlight.Inc()
}

func (r *Recorder) OperationFinished(kind, outcome string, elapsed time.Duration) {
	r.finished.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Inc()
	r.duration.With(prometheus.Labels{"kind": kind}).Observe(elapsed.Seconds())
	r.inFlight.Dec()
}

func (r *Recorder) OperationRefused(kind string) {
	r.refused.With(prometheus.Labels{"kind": kind}).Inc()
}

func (r *Recorder) Notified(level string) {
	r.notifications.With(prometheus.Labels{"level": level}).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logging.Boot("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
