package communication

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auxroom_rooms_active",
		Help: "Number of rooms currently alive.",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auxroom_sessions_active",
		Help: "Number of open client connections.",
	})

	messagesInbound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auxroom_messages_inbound_total",
		Help: "Inbound frames accepted for dispatch, by message type.",
	}, []string{"type"})

	messagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auxroom_messages_dropped_total",
		Help: "Inbound frames dropped: malformed, unknown type or pre-join.",
	})

	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auxroom_delivery_failures_total",
		Help: "Outbound deliveries that failed and closed the session.",
	})
)
