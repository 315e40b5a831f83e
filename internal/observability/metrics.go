package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	entryPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedboard",
		Subsystem: "persistence",
		Name:      "last_entry_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent entry persisted to Postgres.",
	})
	entriesPostedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "feedboard",
		Subsystem: "api",
		Name:      "entries_posted_total",
		Help:      "Number of feed entries accepted by the API.",
	})
	sessionsIssuedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedboard",
		Subsystem: "api",
		Name:      "sessions_issued_total",
		Help:      "Number of sessions issued, by sign-in kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(entryPersistGauge, entriesPostedCounter, sessionsIssuedCounter)
}

// RecordEntryPersisted updates the persistence watermark gauge.
func RecordEntryPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	entryPersistGauge.Set(float64(ts.Unix()))
}

// RecordEntryPosted counts an accepted feed entry.
func RecordEntryPosted() {
	entriesPostedCounter.Inc()
}

// RecordSessionIssued counts an issued session. kind is "anonymous" or "token".
func RecordSessionIssued(kind string) {
	sessionsIssuedCounter.WithLabelValues(kind).Inc()
}
