package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveRequest("POST", "/liveness/sessions", 201, 15*time.Millisecond)
	m.ObserveRequest("POST", "/liveness/sessions", 201, 5*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("POST", "/liveness/sessions", "201")), 0)
}

func TestStreams(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.StreamOpened()
	m.StreamOpened()
	m.StreamClosed()

	assert.InDelta(t, 1, testutil.ToFloat64(m.OpenStreams), 0)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/healthz", 200, time.Millisecond)
		m.StreamOpened()
		m.StreamClosed()
	})
}
