// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ConnectedClients prometheus.Gauge
	ActiveGames      prometheus.Gauge
	BetsPlaced       prometheus.Counter
	BetsRejected     *prometheus.CounterVec
	CardsDealt       prometheus.Counter
	PayoutsTotal     prometheus.Counter
	MessageLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of connected websocket clients",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of live games on this instance",
		}),
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_placed_total",
			Help:      "Total number of accepted bets",
		}),
		BetsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_rejected_total",
			Help:      "Total number of rejected bets by error code",
		}, []string{"code"}),
		CardsDealt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_dealt_total",
			Help:      "Total number of dealt cards",
		}),
		PayoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Total payout amount in minor currency units",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Socket message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ConnectedClients,
		m.ActiveGames,
		m.BetsPlaced,
		m.BetsRejected,
		m.CardsDealt,
		m.PayoutsTotal,
		m.MessageLatency,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

func (m *Monitor) IncConnectedClients()        { m.metrics.ConnectedClients.Inc() }
func (m *Monitor) DecConnectedClients()        { m.metrics.ConnectedClients.Dec() }
func (m *Monitor) SetActiveGames(count int)    { m.metrics.ActiveGames.Set(float64(count)) }
func (m *Monitor) IncBetsPlaced()              { m.metrics.BetsPlaced.Inc() }
func (m *Monitor) IncBetsRejected(code string) { m.metrics.BetsRejected.WithLabelValues(code).Inc() }
func (m *Monitor) IncCardsDealt()              { m.metrics.CardsDealt.Inc() }
func (m *Monitor) AddPayout(amount int64)      { m.metrics.PayoutsTotal.Add(float64(amount)) }
func (m *Monitor) ObserveMessageLatency(d time.Duration) {
	m.metrics.MessageLatency.Observe(d.Seconds())
}
