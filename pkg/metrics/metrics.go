// Package metrics provides Prometheus metrics for the advisory session core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session core's instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// ActiveSessions is 1 while a session exists.
	ActiveSessions prometheus.Gauge

	// SessionsStarted counts Start calls that created a session.
	SessionsStarted prometheus.Counter

	// SessionsEnded counts session teardowns by reason.
	SessionsEnded *prometheus.CounterVec

	// ModeTransitions counts mode changes.
	ModeTransitions *prometheus.CounterVec

	// ChunksSent counts outbound chunks by kind (audio, image).
	ChunksSent *prometheus.CounterVec

	// SegmentsScheduled counts audio segments handed to playback.
	SegmentsScheduled prometheus.Counter

	// SegmentsDropped counts segments that failed to decode or start.
	SegmentsDropped prometheus.Counter

	// Interruptions counts barge-in interruptions.
	Interruptions prometheus.Counter

	// ScheduleLead observes how far ahead of the playback clock segments
	// are scheduled.
	ScheduleLead prometheus.Histogram
}

// New creates and registers the instruments with reg. Use
// prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "advisory_active_sessions",
			Help: "Number of currently active advisory sessions",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "advisory_sessions_started_total",
			Help: "Total number of advisory sessions started",
		}),
		SessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisory_sessions_ended_total",
			Help: "Total number of advisory sessions ended, by reason",
		}, []string{"reason"}),
		ModeTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisory_mode_transitions_total",
			Help: "Total number of session mode transitions",
		}, []string{"from_mode", "to_mode"}),
		ChunksSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisory_chunks_sent_total",
			Help: "Total number of outbound media chunks, by kind",
		}, []string{"kind"}),
		SegmentsScheduled: f.NewCounter(prometheus.CounterOpts{
			Name: "advisory_segments_scheduled_total",
			Help: "Total number of audio segments scheduled for playback",
		}),
		SegmentsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "advisory_segments_dropped_total",
			Help: "Total number of audio segments dropped before playback",
		}),
		Interruptions: f.NewCounter(prometheus.CounterOpts{
			Name: "advisory_interruptions_total",
			Help: "Total number of playback interruptions",
		}),
		ScheduleLead: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisory_schedule_lead_seconds",
			Help:    "Distance between a segment's start offset and the playback clock",
			Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
	}
}

// RecordSessionStarted marks a new session.
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.ActiveSessions.Set(1)
}

// RecordSessionEnded marks a session teardown.
func (m *Metrics) RecordSessionEnded(reason string) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.ActiveSessions.Set(0)
}

// RecordMode marks a mode transition.
func (m *Metrics) RecordMode(from, to string) {
	if m == nil {
		return
	}
	m.ModeTransitions.WithLabelValues(from, to).Inc()
}

// RecordChunk counts an outbound chunk.
func (m *Metrics) RecordChunk(kind string) {
	if m == nil {
		return
	}
	m.ChunksSent.WithLabelValues(kind).Inc()
}

// RecordSegment counts a scheduled segment and its lead over the clock.
func (m *Metrics) RecordSegment(lead time.Duration) {
	if m == nil {
		return
	}
	m.SegmentsScheduled.Inc()
	m.ScheduleLead.Observe(lead.Seconds())
}

// RecordSegmentDropped counts a dropped segment.
func (m *Metrics) RecordSegmentDropped() {
	if m == nil {
		return
	}
	m.SegmentsDropped.Inc()
}

// RecordInterruption counts an interruption.
func (m *Metrics) RecordInterruption() {
	if m == nil {
		return
	}
	m.Interruptions.Inc()
}
