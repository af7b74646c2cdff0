// Package metrics exposes queue engine state and activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/grovetools/queued/internal/daemon/rollup"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event handling results.
const (
	ResultApplied      = "applied"
	ResultUnknownQueue = "unknown_queue"
	ResultMalformed    = "malformed"
	ResultNotFound     = "not_found"
)

// Recorder receives activity counts from the engine's writers.
type Recorder interface {
	RefreshDone(err error)
	EventHandled(topic, result string)
	CommandDone(operation string, err error)
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) RefreshDone(error)           {}
func (Nop) EventHandled(string, string) {}
func (Nop) CommandDone(string, error)   {}

// Metrics is the Prometheus-backed Recorder and rollup exporter.
type Metrics struct {
	registry *prometheus.Registry

	totalCallers   prometheus.Gauge
	totalAvailable prometheus.Gauge
	totalPaused    prometheus.Gauge
	longestWait    prometheus.Gauge
	serviceLevel   prometheus.Gauge
	queueCallers   *prometheus.GaugeVec
	queueMembers   *prometheus.GaugeVec

	refreshes *prometheus.CounterVec
	events    *prometheus.CounterVec
	commands  *prometheus.CounterVec
}

// New creates Metrics registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		totalCallers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queued_total_callers",
			Help: "Callers waiting across all queues",
		}),
		totalAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queued_total_available",
			Help: "Unpaused members in NotInUse state across all queues",
		}),
		totalPaused: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queued_total_paused",
			Help: "Paused members across all queues",
		}),
		longestWait: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queued_longest_wait_seconds",
			Help: "Longest current caller wait",
		}),
		serviceLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "queued_service_level_percent",
			Help: "Mean service level performance across queues",
		}),
		queueCallers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queued_queue_callers",
			Help: "Callers waiting per queue",
		}, []string{"queue"}),
		queueMembers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queued_queue_members",
			Help: "Members per queue",
		}, []string{"queue"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "queued_refresh_total",
			Help: "Snapshot refreshes by outcome",
		}, []string{"status"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "queued_events_total",
			Help: "Push events by topic and handling result",
		}, []string{"topic", "result"}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "queued_commands_total",
			Help: "Member control commands by operation and outcome",
		}, []string{"operation", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RefreshDone(err error) {
	m.refreshes.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) EventHandled(topic, result string) {
	m.events.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) CommandDone(operation string, err error) {
	m.commands.WithLabelValues(operation, status(err)).Inc()
}

// Observe sets the gauges from a rollup computation and the queues it covers.
func (m *Metrics) Observe(r rollup.Rollups, queues []*models.Queue) {
	m.totalCallers.Set(float64(r.TotalCallers))
	m.totalAvailable.Set(float64(r.TotalAvailable))
	m.totalPaused.Set(float64(r.TotalPaused))
	m.longestWait.Set(float64(r.LongestWait.Wait))
	m.serviceLevel.Set(r.OverallServiceLevel)

	m.queueCallers.Reset()
	m.queueMembers.Reset()
	for _, q := range queues {
		m.queueCallers.WithLabelValues(q.Name).Set(float64(q.Calls))
		m.queueMembers.WithLabelValues(q.Name).Set(float64(len(q.Members)))
	}
}

// Run keeps the gauges in step with the store until ctx is cancelled.
func (m *Metrics) Run(ctx context.Context, st *store.Store, agg *rollup.Aggregator) error {
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	m.Observe(agg.Rollups(), st.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			m.Observe(agg.Rollups(), st.Snapshot())
		}
	}
}

// Name returns the collector name used in logs.
func (m *Metrics) Name() string { return "metrics" }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
