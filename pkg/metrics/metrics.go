// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Op results
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultDegraded  = "degraded"
	ResultFailed    = "failed"
)

var (
	CounterOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodtok_counter_ops_total",
		Help: "Transactional counter operations by result",
	}, []string{"result"})
	CounterAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "foodtok_counter_attempts",
		Help:    "Transaction attempts per counter operation",
		Buckets: []float64{1, 2, 3, 5, 8},
	})
	TasksEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodtok_reconciliation_tasks_total",
		Help: "Reconciliation tasks appended to the queue",
	}, []string{"kind"})
	NotificationsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodtok_notifications_written_total",
		Help: "Notification documents written",
	}, []string{"type"})
	Repairs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodtok_repairs_total",
		Help: "Aggregates overwritten by a recompute",
	}, []string{"kind", "source"})
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "foodtok_sweep_duration_seconds",
		Help:    "Full repair sweep duration",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(CounterOps, CounterAttempts, TasksEnqueued, NotificationsWritten, Repairs, SweepDuration)
}

// StartServer 在 addr 上暴露 /metrics, addr 为空时不开启
func StartServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			hlog.Errorf("metrics server on %s stopped: %v", addr, err)
		}
	}()
}

// ObserveSweep records a sweep that started at start.
func ObserveSweep(start time.Time) {
	SweepDuration.Observe(time.Since(start).Seconds())
}
