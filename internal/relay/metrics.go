package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	// wsActive gauges open relay WebSocket subscriptions across all rooms.
	wsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections_active",
			Help: "Current number of live chat relay WebSocket subscriptions.",
		},
	)

	// wsDropped counts subscribers removed because a send failed.
	wsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_subscribers_dropped_total",
			Help: "Total relay subscribers dropped after a failed send.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsActive, wsDropped)
}
