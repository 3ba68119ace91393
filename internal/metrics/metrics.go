// Package metrics exposes counters and histograms for the booking flow.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	bookTotal       *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "booking",
			Name:      "book_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carebook",
			Subsystem: "booking",
			Name:      "status_transition_total",
			Help:      "Appointment status transitions by target status and result",
		}, []string{"to", "result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carebook",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookTotal, m.transitionTotal, m.httpDuration)
	return m
}

func (m *Metrics) ObserveBook(result string) {
	if m == nil {
		return
	}
	m.bookTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTransition(to, result string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(to, result).Inc()
}

func (m *Metrics) ObserveHTTP(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, status).Observe(seconds)
}
