// Package metrics exposes the Prometheus counters/gauges the controller's
// components emit, served over a single /metrics endpoint. Grounded on the
// teacher's internal/metrics (ticks_total, orders_total), extended to the
// full set of signals the bot loop, order executor, and protection machine
// produce.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts ticks ingested per symbol, across every venue.
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradepulse_ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	// OrdersSubmitted counts order placement attempts per symbol/direction
	// that passed the protection gates, before the venue has had a say.
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradepulse_orders_submitted_total", Help: "Orders submitted to a venue"},
		[]string{"symbol", "direction"},
	)
	// OrdersExecuted counts orders the venue accepted.
	OrdersExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradepulse_orders_executed_total", Help: "Orders accepted by the venue"},
		[]string{"symbol", "direction"},
	)
	// OrdersRejected counts orders the venue or the executor rejected.
	OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradepulse_orders_rejected_total", Help: "Orders rejected before or by the venue"},
		[]string{"symbol", "direction"},
	)
	// ProtectionTrips counts cycles rejected because the bot is paused by
	// protection, per symbol, under kind "paused". Suppressed cycles and
	// spread or confidence rejections are not counted here.
	ProtectionTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradepulse_protection_trips_total", Help: "Protection gate rejections"},
		[]string{"symbol", "kind"},
	)
	// ActiveBots reports the number of currently running bots.
	ActiveBots = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tradepulse_active_bots", Help: "Number of bots currently running"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersSubmitted, OrdersExecuted, OrdersRejected, ProtectionTrips, ActiveBots)
}

// Serve starts the /metrics HTTP endpoint in a background goroutine and
// returns the server so callers can shut it down gracefully.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// Shutdown gracefully stops srv, bounded by timeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
