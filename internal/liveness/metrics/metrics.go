package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the liveness module.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsExpired   prometheus.Counter
	SessionResets     prometheus.Counter
	ActiveSessions    prometheus.Gauge
	FrameVerdicts     *prometheus.CounterVec
	FramesSkipped     prometheus.Counter
	FrameDuration     prometheus.Histogram
	TimeToComplete    prometheus.Histogram
}

// New registers liveness metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "livecheck_liveness_sessions_started_total",
			Help: "Total number of liveness sessions started",
		}),
		SessionsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "livecheck_liveness_sessions_completed_total",
			Help: "Total number of liveness sessions that completed every gesture",
		}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "livecheck_liveness_sessions_expired_total",
			Help: "Total number of liveness sessions purged after inactivity",
		}),
		SessionResets: f.NewCounter(prometheus.CounterOpts{
			Name: "livecheck_liveness_session_resets_total",
			Help: "Total number of explicit session resets",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "livecheck_liveness_active_sessions",
			Help: "Number of liveness sessions currently held in memory",
		}),
		FrameVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "livecheck_liveness_frame_verdicts_total",
			Help: "Frames evaluated, by verdict",
		}, []string{"verdict"}),
		FramesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "livecheck_liveness_frames_skipped_total",
			Help: "Frames dropped by the minimum frame interval",
		}),
		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "livecheck_liveness_frame_duration_seconds",
			Help:    "Duration of SubmitFrame operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		TimeToComplete: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "livecheck_liveness_time_to_complete_seconds",
			Help:    "Time from session start to sequence completion",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
	}
}

func (m *Metrics) IncSessionsStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) IncSessionsCompleted(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SessionsCompleted.Inc()
	m.TimeToComplete.Observe(elapsed.Seconds())
}

// IncSessionsExpired records n purged sessions.
func (m *Metrics) IncSessionsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsExpired.Add(float64(n))
	m.ActiveSessions.Sub(float64(n))
}

// SetActiveSessions resyncs the gauge with the store's session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) IncSessionResets() {
	if m == nil {
		return
	}
	m.SessionResets.Inc()
}

func (m *Metrics) ObserveFrame(verdict string, skipped bool, start time.Time) {
	if m == nil {
		return
	}
	if skipped {
		m.FramesSkipped.Inc()
	} else {
		m.FrameVerdicts.WithLabelValues(verdict).Inc()
	}
	m.FrameDuration.Observe(time.Since(start).Seconds())
}
