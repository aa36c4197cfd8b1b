// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/network"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	LiveLobbies      prometheus.Gauge
	ActiveLobbies    prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
	TickDuration     prometheus.Histogram
	Knockouts        prometheus.Counter
	GamesStarted     prometheus.Counter
	GamesEnded       *prometheus.CounterVec
	JoinRejections   *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected sessions",
		}),
		LiveLobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_lobbies",
			Help:      "Number of lobbies in the registry",
		}),
		ActiveLobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_lobbies",
			Help:      "Number of lobbies running a match",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}, []string{"msg_id"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent ticking every active lobby once",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		Knockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knockouts_total",
			Help:      "Credited knockouts",
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Matches started",
		}),
		GamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Matches ended, by outcome",
		}, []string{"outcome"}),
		JoinRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_rejections_total",
			Help:      "Rejected join attempts, by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.LiveLobbies,
		m.ActiveLobbies,
		m.MessagesReceived,
		m.MessageLatency,
		m.TickDuration,
		m.Knockouts,
		m.GamesStarted,
		m.GamesEnded,
		m.JoinRejections,
	)

	return m
}

// Monitor records server metrics. It doubles as a lobby observer and a tick
// observer.
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

var publishOnce sync.Once

func NewMonitor(namespace string, registry *prometheus.Registry) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace, registry),
		registry:  registry,
		startTime: time.Now(),
	}

	// 添加expvar指标. expvar names are process-wide, so only the first
	// monitor publishes them.
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Handler serves the registry in the prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// VarsHandler serves expvar.
func (m *Monitor) VarsHandler() http.Handler {
	return expvar.Handler()
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) IncMessagesReceived(msgID uint16) {
	m.metrics.MessagesReceived.WithLabelValues(msgLabel(msgID)).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncJoinRejection(reason string) {
	m.metrics.JoinRejections.WithLabelValues(reason).Inc()
}

// ObserveTick implements scheduler.TickObserver.
func (m *Monitor) ObserveTick(d time.Duration, live, active int) {
	m.metrics.TickDuration.Observe(d.Seconds())
	m.metrics.LiveLobbies.Set(float64(live))
	m.metrics.ActiveLobbies.Set(float64(active))
}

// --- lobby.Observer ---

func (m *Monitor) GameStarted(string) {
	m.metrics.GamesStarted.Inc()
}

func (m *Monitor) Knockout(string, game.Knockout) {
	m.metrics.Knockouts.Inc()
}

func (m *Monitor) GameEnded(result game.Result) {
	outcome := "winner"
	if result.Winner == nil {
		outcome = "no_winner"
	}
	m.metrics.GamesEnded.WithLabelValues(outcome).Inc()
}

// msgLabel keeps the label set bounded: ids outside the client protocol
// all share one series.
func msgLabel(msgID uint16) string {
	switch msgID {
	case network.MsgTypeHeartbeat, network.MsgTypeJoinLobby,
		network.MsgTypeLeaveLobby, network.MsgTypeInput:
		return strconv.FormatUint(uint64(msgID), 10)
	}
	return "unknown"
}
