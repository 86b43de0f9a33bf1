package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livepoll"

var (
	PollsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_created_total",
		Help:      "Polls created.",
	})

	VotesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_submitted_total",
		Help:      "Responses stored.",
	})

	// FeedEvents is labelled by feed driver and outcome (delivered, dropped,
	// malformed).
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_events_total",
		Help:      "Response feed events by outcome.",
	}, []string{"feed", "outcome"})

	FeedReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_reconnects_total",
		Help:      "Feed connection drops and reconnects. Events inserted while disconnected are not replayed.",
	}, []string{"feed", "event"})

	LiveViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_viewers",
		Help:      "Open live results connections.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
