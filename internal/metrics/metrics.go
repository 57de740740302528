package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenConnections tracks live websocket connections.
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pesan",
		Name:      "ws_open_connections",
		Help:      "Number of open websocket connections.",
	})

	// EventsEmitted counts outbound realtime events by event name.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pesan",
		Name:      "realtime_events_emitted_total",
		Help:      "Outbound realtime events, by event name.",
	}, []string{"event"})

	// EventsReceived counts inbound websocket events by event name.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pesan",
		Name:      "realtime_events_received_total",
		Help:      "Inbound websocket events, by event name.",
	}, []string{"event"})

	// StatusTransitions counts message status advances by target status.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pesan",
		Name:      "message_status_transitions_total",
		Help:      "Message status transitions, by resulting status.",
	}, []string{"to"})
)
