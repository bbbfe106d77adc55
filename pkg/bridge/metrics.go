package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bridge's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	MessagesTotal   *prometheus.CounterVec
	ParseErrors     prometheus.Counter
	AcksTotal       *prometheus.CounterVec
	WidgetCalls     *prometheus.CounterVec
	WidgetCallMs    *prometheus.HistogramVec
	EventsTotal     *prometheus.CounterVec
	ResourcesTotal  *prometheus.CounterVec
	DownloadsActive prometheus.Gauge
}

// NewMetrics registers the bridge collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nativeui_messages_total",
			Help: "Messages routed, by namespace",
		}, []string{"namespace"}),
		ParseErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "nativeui_message_parse_errors_total",
			Help: "Inbound messages that could not be parsed",
		}),
		AcksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nativeui_acks_total",
			Help: "Processed acknowledgments sent, by form",
		}, []string{"form"}),
		WidgetCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nativeui_widget_calls_total",
			Help: "Widget calls dispatched, by action and outcome",
		}, []string{"action", "outcome"}),
		WidgetCallMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nativeui_widget_call_duration_ms",
			Help:    "Native widget call duration in milliseconds by action",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		}, []string{"action"}),
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nativeui_events_total",
			Help: "Native widget events, by outcome",
		}, []string{"outcome"}),
		ResourcesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nativeui_resources_total",
			Help: "Resource loads, by action and outcome",
		}, []string{"action", "outcome"}),
		DownloadsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "nativeui_remote_downloads_active",
			Help: "Remote image downloads in flight",
		}),
	}
}

func (m *Metrics) message(namespace string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(namespace).Inc()
}

func (m *Metrics) parseError() {
	if m == nil {
		return
	}
	m.ParseErrors.Inc()
}

func (m *Metrics) ack(form string) {
	if m == nil {
		return
	}
	m.AcksTotal.WithLabelValues(form).Inc()
}

func (m *Metrics) widgetCall(action, outcome string) {
	if m == nil {
		return
	}
	m.WidgetCalls.WithLabelValues(action, outcome).Inc()
}

// widgetCallTook observes a native call that actually ran.
func (m *Metrics) widgetCallTook(action string, ms float64) {
	if m == nil {
		return
	}
	m.WidgetCallMs.WithLabelValues(action).Observe(ms)
}

func (m *Metrics) event(outcome string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) resource(action, outcome string) {
	if m == nil {
		return
	}
	m.ResourcesTotal.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) downloads(delta float64) {
	if m == nil {
		return
	}
	m.DownloadsActive.Add(delta)
}
