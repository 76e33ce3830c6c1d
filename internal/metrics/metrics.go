// Package metrics records simulation progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meow-stack/factory-sim/internal/types"
)

// Outcome labels of an operation on one day.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDeferred = "deferred" // due but disabled
)

// Recorder receives orchestrator events.
type Recorder interface {
	ObserveOperation(op types.Operation, outcome string, d time.Duration)
	SetDay(day, total int)
	SetPending(n int)
	IncSyncWarnings()
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) ObserveOperation(types.Operation, string, time.Duration) {}
func (NoOp) SetDay(int, int)                                         {}
func (NoOp) SetPending(int)                                          {}
func (NoOp) IncSyncWarnings()                                        {}

// Prometheus is a Recorder backed by its own registry.
type Prometheus struct {
	Registry *prometheus.Registry

	OperationRuns     *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Day               prometheus.Gauge
	TotalDays         prometheus.Gauge
	Pending           prometheus.Gauge
	SyncWarnings      prometheus.Counter
}

// NewPrometheus creates and registers the simulation metrics.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		Registry: prometheus.NewRegistry(),
		OperationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factorysim",
			Name:      "operation_runs_total",
			Help:      "Operations due per day by outcome.",
		}, []string{"operation", "outcome"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factorysim",
			Name:      "operation_duration_seconds",
			Help:      "Wall-clock duration of handler invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
		Day: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factorysim",
			Name:      "day",
			Help:      "Current simulated day index.",
		}),
		TotalDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factorysim",
			Name:      "total_days",
			Help:      "Configured run length in days.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factorysim",
			Name:      "pending_operations",
			Help:      "Operations due today awaiting an agent.",
		}),
		SyncWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "factorysim",
			Name:      "sync_warnings_total",
			Help:      "Snapshot publications that failed.",
		}),
	}
	p.Registry.MustRegister(p.OperationRuns, p.OperationDuration, p.Day, p.TotalDays, p.Pending, p.SyncWarnings)
	return p
}

func (p *Prometheus) ObserveOperation(op types.Operation, outcome string, d time.Duration) {
	p.OperationRuns.WithLabelValues(string(op), outcome).Inc()
	if outcome != OutcomeDeferred {
		p.OperationDuration.WithLabelValues(string(op)).Observe(d.Seconds())
	}
}

func (p *Prometheus) SetDay(day, total int) {
	p.Day.Set(float64(day))
	p.TotalDays.Set(float64(total))
}

func (p *Prometheus) SetPending(n int) { p.Pending.Set(float64(n)) }

func (p *Prometheus) IncSyncWarnings() { p.SyncWarnings.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}
