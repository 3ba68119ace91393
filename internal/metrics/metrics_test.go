package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBook(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBook("success")
	m.ObserveBook("success")
	m.ObserveBook("conflict")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.bookTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bookTotal.WithLabelValues("conflict")))
}

func TestObserveTransition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTransition("confirmed", "success")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitionTotal.WithLabelValues("confirmed", "success")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.transitionTotal.WithLabelValues("declined", "success")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveBook("success")
		m.ObserveTransition("confirmed", "success")
		m.ObserveHTTP("GET", "200", 0.1)
	})
}
