package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scrape outcomes used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeHTTPError = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeNoKey     = "no_key"
)

var (
	// UpdatesTotal counts processed chat updates by kind
	// (command, message, callback, other).
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htmlbot_updates_total",
			Help: "Total number of chat updates processed.",
		},
		[]string{"kind"},
	)

	// ScrapesTotal counts download attempts by outcome.
	ScrapesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htmlbot_scrapes_total",
			Help: "Total number of scrape gateway attempts.",
		},
		[]string{"outcome"},
	)

	// ScrapeDuration records gateway round-trip time. Gateway renders can be
	// slow, so buckets reach the 30s client timeout.
	ScrapeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "htmlbot_scrape_duration_seconds",
			Help:    "Duration of scrape gateway requests in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)

	// UpdatesDropped counts updates rejected by the dispatcher.
	UpdatesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htmlbot_updates_dropped_total",
			Help: "Updates not processed, by reason (duplicate, queue_full).",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(UpdatesTotal, ScrapesTotal, ScrapeDuration, UpdatesDropped)
}

// ObserveScrape records one gateway attempt.
func ObserveScrape(outcome string, d time.Duration) {
	ScrapesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeNoKey {
		ScrapeDuration.Observe(d.Seconds())
	}
}
