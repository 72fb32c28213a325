package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat widget flow.
// All observe methods are nil-safe so wiring metrics stays optional.
type ChatMetrics struct {
	messagesTotal   *prometheus.CounterVec
	fallbackTotal   *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
	handlingLatency prometheus.Histogram
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Total inbound chat messages handled",
		}, []string{"source", "complete"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "chat",
			Name:      "scripted_fallback_total",
			Help:      "Replies served from scripted prompts instead of the LLM",
		}, []string{"reason"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalchat",
			Subsystem: "booking",
			Name:      "completed_total",
			Help:      "Bookings that reached confirmation",
		}, []string{"urgency"}),
		handlingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dentalchat",
			Subsystem: "chat",
			Name:      "handling_latency_seconds",
			Help:      "Latency of chat message handling",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.fallbackTotal, m.bookingsTotal, m.handlingLatency)
	return m
}

func (m *ChatMetrics) ObserveMessage(source string, complete bool) {
	if m == nil {
		return
	}
	label := "false"
	if complete {
		label = "true"
	}
	m.messagesTotal.WithLabelValues(source, label).Inc()
}

func (m *ChatMetrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(reason).Inc()
}

func (m *ChatMetrics) ObserveBookingComplete(urgency string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(urgency).Inc()
}

func (m *ChatMetrics) ObserveHandlingLatency(seconds float64) {
	if m == nil {
		return
	}
	m.handlingLatency.Observe(seconds)
}
