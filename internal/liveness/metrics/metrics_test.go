package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncSessionsStarted()
	m.IncSessionsStarted()
	m.IncSessionsExpired(1)
	m.ObserveFrame("FACE_OK", false, time.Now())
	m.ObserveFrame("FACE_OK", false, time.Now())
	m.ObserveFrame("", true, time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FrameVerdicts.WithLabelValues("FACE_OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesSkipped))

	m.SetActiveSessions(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncSessionsStarted()
		m.IncSessionsCompleted(time.Second)
		m.IncSessionsExpired(3)
		m.IncSessionResets()
		m.SetActiveSessions(1)
		m.ObserveFrame("NO_FACE", false, time.Now())
	})
}
