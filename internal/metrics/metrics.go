// Package metrics provides Prometheus instrumentation for the chat client.
// It exposes gauges for connection and subscription state, counters for
// message throughput, and a histogram for directory request latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BusConnected is 1 while the message-bus connection is active, 0 otherwise.
	BusConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tcchat_bus_connected",
		Help: "Whether the message bus connection is currently active (1 or 0)",
	})

	// BusReconnects counts automatic reconnections performed by the transport.
	BusReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcchat_bus_reconnects_total",
		Help: "Total number of automatic bus reconnections",
	})

	// RoomSubscriptions tracks the current number of live per-room bus
	// subscriptions.
	RoomSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tcchat_room_subscriptions",
		Help: "Current number of active per-room bus subscriptions",
	})

	// MessagesDelivered counts inbound messages fanned out to observers.
	MessagesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcchat_messages_delivered_total",
		Help: "Total number of inbound chat messages delivered to observers",
	})

	// MessagesDropped counts inbound messages dropped because a room's
	// delivery buffer or an observer's buffer was full.
	MessagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcchat_messages_dropped_total",
		Help: "Total number of inbound chat messages dropped due to backpressure",
	})

	// UnreadRooms tracks how many observed rooms are currently unread.
	UnreadRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tcchat_unread_rooms",
		Help: "Current number of observed rooms with unread messages",
	})

	// DirectoryRequestDuration records chat directory REST call latency.
	DirectoryRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tcchat_directory_request_seconds",
		Help:    "Chat directory request latency in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
)

func init() {
	prometheus.MustRegister(
		BusConnected,
		BusReconnects,
		RoomSubscriptions,
		MessagesDelivered,
		MessagesDropped,
		UnreadRooms,
		DirectoryRequestDuration,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
