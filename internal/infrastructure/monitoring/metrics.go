package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Side-service gauge values.
const (
	SideServiceUninitialized = 0
	SideServiceProbing       = 1
	SideServiceUnavailable   = 2
	SideServiceReady         = 3
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Coordinator metrics
	OpsTotal          *prometheus.CounterVec
	WindowsActive     prometheus.Gauge
	SubscribersActive prometheus.Gauge
	AwaitWaiters      prometheus.Gauge
	KeysStored        prometheus.Gauge

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	EventsBuffered  prometheus.Gauge

	// Side service metrics
	SideServiceState prometheus.Gauge
	ProbeDuration    prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON health API
type Snapshot struct {
	TotalRequests int64
	TotalErrors   int64
	TotalDuration float64 // sum of all request durations
	RequestCount  int64   // count for averaging
}

// NewMetrics creates a metrics collector on the default registry
func NewMetrics() *Metrics {
	m := newMetrics(prometheus.DefaultRegisterer)

	// Start uptime updater
	go m.updateUptime()

	return m
}

// NewMetricsWith creates a metrics collector on a custom registry.
// The uptime updater is not started; tests own the registry lifecycle.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "desktop_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "desktop_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "desktop_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Coordinator metrics
		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_env_ops_total",
				Help: "Total number of coordinator operations",
			},
			[]string{"op"},
		),
		WindowsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_env_windows_active",
				Help: "Number of registered window handles",
			},
		),
		SubscribersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_env_subscribers_active",
				Help: "Number of registered event subscribers",
			},
		),
		AwaitWaiters: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_env_await_waiters",
				Help: "Number of callers blocked on key waits",
			},
		),
		KeysStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_env_keys_stored",
				Help: "Number of keys in the shared store",
			},
		),

		// Event metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_events_published_total",
				Help: "Total number of lifecycle events published",
			},
			[]string{"kind"},
		),
		EventsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_events_delivered_total",
				Help: "Total number of events delivered to subscribers",
			},
			[]string{"kind"},
		),
		EventsBuffered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_events_buffered",
				Help: "Number of events held for the first subscriber",
			},
		),

		// Side service metrics
		SideServiceState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_side_service_state",
				Help: "Side service state (0=uninitialized 1=probing 2=unavailable 3=ready)",
			},
		),
		ProbeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "desktop_side_service_probe_seconds",
				Help:    "Side service probe duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "desktop_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "desktop_uptime_seconds",
				Help: "Host uptime in seconds",
			},
		),
	}
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordOp records a coordinator operation
func (m *Metrics) RecordOp(op string) {
	m.OpsTotal.WithLabelValues(op).Inc()
}

// RecordEventPublished records a published lifecycle event
func (m *Metrics) RecordEventPublished(kind string) {
	m.EventsPublished.WithLabelValues(kind).Inc()
}

// RecordEventDelivered records an event handed to a subscriber
func (m *Metrics) RecordEventDelivered(kind string) {
	m.EventsDelivered.WithLabelValues(kind).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetWindowsActive sets the number of registered windows
func (m *Metrics) SetWindowsActive(count int) {
	m.WindowsActive.Set(float64(count))
}

// SetSubscribersActive sets the number of registered subscribers
func (m *Metrics) SetSubscribersActive(count int) {
	m.SubscribersActive.Set(float64(count))
}

// SetAwaitWaiters sets the number of blocked key waiters
func (m *Metrics) SetAwaitWaiters(count int) {
	m.AwaitWaiters.Set(float64(count))
}

// SetKeysStored sets the number of stored keys
func (m *Metrics) SetKeysStored(count int) {
	m.KeysStored.Set(float64(count))
}

// SetEventsBuffered sets the number of buffered events
func (m *Metrics) SetEventsBuffered(count int) {
	m.EventsBuffered.Set(float64(count))
}

// SetSideServiceState sets the side service state gauge
func (m *Metrics) SetSideServiceState(state int) {
	m.SideServiceState.Set(float64(state))
}

// ObserveProbeDuration records how long the side service probe took
func (m *Metrics) ObserveProbeDuration(d time.Duration) {
	m.ProbeDuration.Observe(d.Seconds())
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// GetSnapshot returns current request counters for the health API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
