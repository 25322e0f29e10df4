// Package telemetry provides Prometheus metrics, tracing, and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	TracksEnqueued      prometheus.Counter
	TracksStarted       prometheus.Counter
	PlaybackErrors      prometheus.Counter
	QueueFullRejections prometheus.Counter
	DeletionsScheduled  prometheus.Counter
	DeletionsFailed     prometheus.Counter
	DeletionsCancelled  prometheus.Counter

	// Histograms (seconds)
	ResolveDuration prometheus.Observer

	// Gauges
	ActiveQueues     prometheus.Gauge
	PendingDeletions prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		TracksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harmonybot_tracks_enqueued_total",
			Help: "Number of tracks added to guild queues",
		})
		TracksStarted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harmonybot_tracks_started_total",
			Help: "Number of tracks that reached the playing state",
		})
		PlaybackErrors = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harmonybot_playback_errors_total",
			Help: "Number of tracks dropped because playback failed",
		})
		QueueFullRejections = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harmonybot_queue_full_total",
			Help: "Number of enqueue requests rejected at capacity",
		})
		DeletionsScheduled = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harmonybot_deletions_scheduled_total",
			Help: "Number of bot messages scheduled for deletion",
		})
		DeletionsFailed = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harmonybot_deletions_failed_total",
			Help: "Number of scheduled deletions that failed",
		})
		DeletionsCancelled = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harmonybot_deletions_cancelled_total",
			Help: "Number of scheduled deletions cancelled before firing",
		})
		ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "harmonybot_track_resolve_duration_seconds",
			Help:    "Track resolution duration seconds",
			Buckets: prometheus.DefBuckets,
		})
		ActiveQueues = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "harmonybot_active_queues",
			Help: "Current number of guild queues",
		})
		PendingDeletions = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "harmonybot_pending_deletions",
			Help: "Current number of pending message deletions",
		})
	})
}

// Inc increments c if metrics were initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetGauge sets g to n if metrics were initialized.
func SetGauge(g prometheus.Gauge, n int) {
	if g != nil {
		g.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With("corr", id)
	}
	return slog.Default()
}
