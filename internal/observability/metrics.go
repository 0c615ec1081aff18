// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Poller metrics
	PollsTotal      *prometheus.CounterVec
	EventsDetected  *prometheus.CounterVec
	EventsFiltered  *prometheus.CounterVec
	CursorAdvances  prometheus.Counter
	EventsPersisted *prometheus.CounterVec

	// Source metrics
	SourceErrors  *prometheus.CounterVec
	SourceLatency *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Delivery metrics
	Deliveries      *prometheus.CounterVec
	DedupSuppressed prometheus.Counter

	// Leaderboard metrics
	LeaderboardTicks    *prometheus.CounterVec
	LeaderboardMessages *prometheus.CounterVec
	RankedTokens        prometheus.Gauge

	// Supervisor metrics
	TaskRuns     *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulPoll        prometheus.Gauge
	LastSuccessfulLeaderboard prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered on reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "ton_buy_tracker"
	}
	f := promauto.With(reg)

	return &Metrics{
		PollsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "pool_polls_total",
			Help:      "Total number of pool polls by exchange and status",
		}, []string{"exchange", "status"}),
		EventsDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "buys_detected_total",
			Help:      "Total number of buy events emitted by exchange",
		}, []string{"exchange"}),
		EventsFiltered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "transactions_filtered_total",
			Help:      "Total number of transactions dropped by reason",
		}, []string{"reason"}),
		CursorAdvances: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cursor_advances_total",
			Help:      "Total number of pool cursor advances",
		}),
		EventsPersisted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "events_persisted_total",
			Help:      "Total number of event log appends by status",
		}, []string{"status"}),

		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "errors_total",
			Help:      "Total number of external source failures",
		}, []string{"source", "operation"}),
		SourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "call_latency_seconds",
			Help:      "External source call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "operation"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics_cache",
			Name:      "lookups_total",
			Help:      "Metrics cache lookups by result",
		}, []string{"result"}),

		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "messages_total",
			Help:      "Delivered notifications by destination kind and status",
		}, []string{"destination", "status"}),
		DedupSuppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "dedup_suppressed_total",
			Help:      "Channel posts suppressed as duplicates",
		}),

		LeaderboardTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "ticks_total",
			Help:      "Leaderboard aggregation ticks by status",
		}, []string{"status"}),
		LeaderboardMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "messages_total",
			Help:      "Leaderboard message operations by action",
		}, []string{"action"}),
		RankedTokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "ranked_tokens",
			Help:      "Number of tokens in the current rank table",
		}),

		TaskRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "task_runs_total",
			Help:      "Periodic task runs by task and status",
		}, []string{"task", "status"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "task_duration_seconds",
			Help:      "Periodic task run duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"task"}),

		LastSuccessfulPoll: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of last completed poll tick",
		}),
		LastSuccessfulLeaderboard: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_leaderboard_timestamp",
			Help:      "Unix timestamp of last successful leaderboard tick",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPoll records the outcome of one pool poll.
func RecordPoll(exchange string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.PollsTotal.WithLabelValues(exchange, status).Inc()
}

// RecordBuyDetected increments the emitted buys counter.
func RecordBuyDetected(exchange string) {
	DefaultMetrics.EventsDetected.WithLabelValues(exchange).Inc()
}

// RecordFiltered increments the filtered transactions counter.
func RecordFiltered(reason string) {
	DefaultMetrics.EventsFiltered.WithLabelValues(reason).Inc()
}

// RecordCursorAdvance increments the cursor advance counter.
func RecordCursorAdvance() {
	DefaultMetrics.CursorAdvances.Inc()
}

// RecordPersist records an event log append.
func RecordPersist(status string) {
	DefaultMetrics.EventsPersisted.WithLabelValues(status).Inc()
}

// RecordSourceCall records latency and failure of an external call.
func RecordSourceCall(source, operation string, started time.Time, err error) {
	DefaultMetrics.SourceLatency.WithLabelValues(source, operation).Observe(time.Since(started).Seconds())
	if err != nil {
		DefaultMetrics.SourceErrors.WithLabelValues(source, operation).Inc()
	}
}

// RecordCacheLookup records a metrics cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
}

// RecordDelivery records a notification delivery.
func RecordDelivery(destination string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.Deliveries.WithLabelValues(destination, status).Inc()
}

// RecordDeliverySkipped records a notification dropped before any send attempt.
func RecordDeliverySkipped(destination string) {
	DefaultMetrics.Deliveries.WithLabelValues(destination, "skipped").Inc()
}

// RecordDedupSuppressed increments the suppressed channel posts counter.
func RecordDedupSuppressed() {
	DefaultMetrics.DedupSuppressed.Inc()
}

// RecordLeaderboardTick records a leaderboard tick and the size of the published table.
func RecordLeaderboardTick(ranked int, err error) {
	if err != nil {
		DefaultMetrics.LeaderboardTicks.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.LeaderboardTicks.WithLabelValues("ok").Inc()
	DefaultMetrics.RankedTokens.Set(float64(ranked))
	DefaultMetrics.LastSuccessfulLeaderboard.SetToCurrentTime()
}

// RecordLeaderboardMessage records a send, edit or fallback send.
func RecordLeaderboardMessage(action string) {
	DefaultMetrics.LeaderboardMessages.WithLabelValues(action).Inc()
}

// RecordTaskRun records a supervised task run.
func RecordTaskRun(task, status string, duration time.Duration) {
	DefaultMetrics.TaskRuns.WithLabelValues(task, status).Inc()
	DefaultMetrics.TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordPollTick marks a completed poll tick.
func RecordPollTick() {
	DefaultMetrics.LastSuccessfulPoll.SetToCurrentTime()
}
