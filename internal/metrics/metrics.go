// Package metrics provides Prometheus metrics for the retroweb servers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connection metrics, labelled by protocol ("ssh", "http", "gopher", ...).
	connectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retroweb_connections_total",
			Help: "Total number of accepted connections",
		},
		[]string{"protocol"},
	)

	connectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retroweb_connections_active",
			Help: "Number of currently open connections",
		},
		[]string{"protocol"},
	)

	// Terminal metrics
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retroweb_terminal_commands_total",
			Help: "Total number of terminal commands dispatched",
		},
		[]string{"command"},
	)

	idleTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retroweb_terminal_idle_timeouts_total",
			Help: "Total number of sessions closed by the idle watchdog",
		},
	)

	// Content metrics
	contentReloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retroweb_content_reloads_total",
			Help: "Total number of content snapshot reloads",
		},
	)
)

// ConnectionOpened records an accepted connection for a protocol.
func ConnectionOpened(protocol string) {
	connectionsTotal.WithLabelValues(protocol).Inc()
	connectionsActive.WithLabelValues(protocol).Inc()
}

// ConnectionClosed records a closed connection for a protocol.
func ConnectionClosed(protocol string) {
	connectionsActive.WithLabelValues(protocol).Dec()
}

// CommandDispatched records one terminal command dispatch.
func CommandDispatched(command string) {
	commandsTotal.WithLabelValues(command).Inc()
}

// IdleTimeout records a session closed by the idle watchdog.
func IdleTimeout() {
	idleTimeoutsTotal.Inc()
}

// ContentReloaded records a content snapshot reload.
func ContentReloaded() {
	contentReloadsTotal.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
