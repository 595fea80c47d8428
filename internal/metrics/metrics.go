package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "booksim_snapshots_generated_total", Help: "Snapshots generated per feed"},
		[]string{"venue", "symbol"},
	)
	FeedDisconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "booksim_feed_disconnects_total", Help: "Simulated feed disconnects"},
		[]string{"venue", "symbol"},
	)
	FeedReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "booksim_feed_reconnects_total", Help: "Feed recoveries after disconnect"},
		[]string{"venue", "symbol"},
	)
	FeedConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "booksim_feed_connected", Help: "1 while the feed is connected"},
		[]string{"venue", "symbol"},
	)
	ImpactRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "booksim_impact_requests_total", Help: "Impact estimations served"},
	)
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "booksim_ws_clients", Help: "Connected WebSocket clients"},
	)
)

// Init registers all collectors on a fresh registry
func Init() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SnapshotsTotal, FeedDisconnectsTotal, FeedReconnectsTotal, FeedConnected,
		ImpactRequestsTotal, WSClients,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	return reg
}

// Handler serves the registry over HTTP
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
