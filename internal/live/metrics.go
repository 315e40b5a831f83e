package live

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	broadcastCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "feedboard",
		Subsystem: "live",
		Name:      "events_broadcast_total",
		Help:      "Number of feed events fanned out to stream watchers.",
	})

	duplicatesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "feedboard",
		Subsystem: "live",
		Name:      "events_deduplicated_total",
		Help:      "Number of feed events dropped as recently-seen duplicates.",
	})

	droppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "feedboard",
		Subsystem: "live",
		Name:      "messages_dropped_total",
		Help:      "Number of events dropped because a subscriber was too slow.",
	})

	subscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedboard",
		Subsystem: "live",
		Name:      "stream_subscribers",
		Help:      "Number of connected stream subscribers.",
	})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedboard",
		Subsystem: "live",
		Name:      "decode_errors_total",
		Help:      "Number of relay decode failures per topic.",
	}, []string{"topic"})

	lastRelayedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "feedboard",
		Subsystem: "live",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully relayed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(broadcastCounter, duplicatesCounter, droppedCounter, subscribersGauge, decodeErrorCounter, lastRelayedGauge)
}

func recordRelayed(topic string, ts time.Time) {
	if !ts.IsZero() {
		lastRelayedGauge.WithLabelValues(topic).Set(float64(ts.Unix()))
	}
}
