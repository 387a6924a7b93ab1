// Package metrics exposes Prometheus instrumentation for the bot and store.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/guildgate/guildgate-bot/internal/application"
	"github.com/guildgate/guildgate-bot/internal/storage"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	statusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_status_transitions_total",
			Help: "Total number of application status transitions",
		},
		[]string{"from", "to"},
	)
	persistDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_persist_duration_seconds",
			Help:    "Duration of full snapshot writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	persistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_persist_failures_total",
			Help: "Total number of failed snapshot writes",
		},
		[]string{"operation"},
	)
	xpAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP points awarded across all chats",
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	pendingApplications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_applications",
			Help: "Current number of pending membership applications",
		},
	)
	adminsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "admins_total",
			Help: "Current number of registered admins",
		},
	)
	applicationsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "applications_by_status",
			Help: "Number of application history entries per status",
		},
		[]string{"status"},
	)
)

func init() {
	application.RegisterTransitionRecorder(RecordStatusTransition)
	storage.RegisterPersistRecorder(RecordPersist)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStatusTransition tracks application lifecycle transitions.
func RecordStatusTransition(from, to string) {
	if from == "" {
		from = "none"
	}
	if to == "" {
		to = "none"
	}

	statusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordPersist tracks one snapshot write attempt.
func RecordPersist(operation string, duration time.Duration, success bool) {
	if operation == "" {
		operation = "unknown"
	}

	persistDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
	if !success {
		persistFailuresTotal.WithLabelValues(operation).Inc()
	}
}

// RecordXPAwarded accumulates the awarded XP counter.
func RecordXPAwarded(amount int) {
	if amount > 0 {
		xpAwardedTotal.Add(float64(amount))
	}
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// StoreCollector periodically derives gauge metrics from store statistics.
type StoreCollector struct {
	store *storage.Store
}

// NewStoreCollector builds a metrics collector bound to the store.
func NewStoreCollector(store *storage.Store) *StoreCollector {
	return &StoreCollector{store: store}
}

// Run polls the store every 15 seconds, updating application gauges until ctx
// is cancelled.
func (c *StoreCollector) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		c.collect()

		select {
		case <-ctx.Done():
			return
		case <-time.After(15 * time.Second):
		}
	}
}

func (c *StoreCollector) collect() {
	stats := c.store.Statistics()

	pendingApplications.Set(float64(stats.Pending))
	adminsTotal.Set(float64(len(c.store.Admins())))

	for _, status := range application.Statuses {
		applicationsByStatus.WithLabelValues(string(status)).Set(float64(stats.StatusCounts[string(status)]))
	}
}
