package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrouting"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
)

const namespace = "intake"

// Registry holds the service's Prometheus collectors. It satisfies the
// metrics interfaces of the intake, callrouting and callrecord services.
type Registry struct {
	turnsTotal      *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	optOutsTotal    *prometheus.CounterVec
	transfersTotal  *prometheus.CounterVec
	routingDecision *prometheus.CounterVec
	routingLatency  prometheus.Histogram
	routedDebt      *prometheus.HistogramVec

	persistenceTotal *prometheus.CounterVec
	recordingLookups *prometheus.CounterVec
	dncEntriesTotal  *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewRegistry registers all collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewRegistry(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)

	return &Registry{
		turnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "turn",
			Name:      "total",
			Help:      "Conversation turns handled, by resulting step and directive",
		}, []string{"step", "directive"}),

		turnLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "turn",
			Name:      "duration_seconds",
			Help:      "Turn handling latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"directive"}),

		optOutsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optout",
			Name:      "total",
			Help:      "Do-not-call requests, by the step they interrupted",
		}, []string{"step"}),

		transfersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "total",
			Help:      "Transfers requested, by tier and whether a destination was known",
		}, []string{"tier", "has_destination"}),

		routingDecision: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Tier decisions, by tier and the provider that supplied the destination",
		}, []string{"tier", "source"}),

		routingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "latency_seconds",
			Help:      "Time spent resolving tier configuration",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),

		routedDebt: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "total_debt_dollars",
			Help:      "Total unsecured debt at routing time",
			Buckets:   []float64{1000, 5000, 10000, 20000, 35000, 50000, 75000, 100000, 250000},
		}, []string{"tier"}),

		persistenceTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "call_record",
			Name:      "writes_total",
			Help:      "Call record inserts, by outcome",
		}, []string{"outcome"}),

		recordingLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "call_record",
			Name:      "recording_lookups_total",
			Help:      "Recording lookups, by outcome",
		}, []string{"outcome"}),

		dncEntriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dnc",
			Name:      "entries_total",
			Help:      "Do-not-call list writes, by outcome",
		}, []string{"outcome"}),

		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		}, []string{"method", "route"}),
	}
}

func (r *Registry) RecordTurn(_ context.Context, step domain.Step, directive intake.Directive, latency time.Duration) {
	r.turnsTotal.WithLabelValues(step.String(), directive.String()).Inc()
	r.turnLatency.WithLabelValues(directive.String()).Observe(latency.Seconds())
}

func (r *Registry) RecordOptOut(_ context.Context, step domain.Step) {
	r.optOutsTotal.WithLabelValues(step.String()).Inc()
}

func (r *Registry) RecordTransfer(_ context.Context, tier domain.Tier, hasDestination bool) {
	r.transfersTotal.WithLabelValues(tier.String(), strconv.FormatBool(hasDestination)).Inc()
}

func (r *Registry) RecordRoutingDecision(_ context.Context, d *callrouting.Decision) {
	source := d.Source
	if source == "" {
		source = "none"
	}
	r.routingDecision.WithLabelValues(d.Tier.String(), source).Inc()
	r.routingLatency.Observe(d.Latency.Seconds())
	r.routedDebt.WithLabelValues(d.Tier.String()).Observe(d.TotalDebt)
}

func (r *Registry) RecordPersistence(_ context.Context, outcome string) {
	r.persistenceTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordRecordingLookup(_ context.Context, outcome string) {
	r.recordingLookups.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordDNCEntry(_ context.Context, outcome string) {
	r.dncEntriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records one served request. route is the matched
// pattern, not the raw path.
func (r *Registry) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
