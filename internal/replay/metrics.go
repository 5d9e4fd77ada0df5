package replay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/charge-telemetry/backend/internal/charge"
	"github.com/charge-telemetry/backend/internal/models"
)

// Metrics are the replay collectors. A nil *Metrics records nothing.
type Metrics struct {
	Replays  *prometheus.CounterVec
	Frames   *prometheus.CounterVec
	Active   prometheus.Gauge
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canreplay_replays_total",
			Help: "Replays by log and outcome.",
		}, []string{"log", "outcome"}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canreplay_frames_total",
			Help: "Parsed data frames by log and frame kind.",
		}, []string{"log", "kind"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "canreplay_active_replays",
			Help: "Replays currently streaming.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "canreplay_replay_duration_seconds",
			Help:    "Wall-clock duration of replays.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"log"}),
	}
	if reg != nil {
		reg.MustRegister(m.Replays, m.Frames, m.Active, m.Duration)
	}
	return m
}

var kindLabels = map[charge.FrameKind]string{
	charge.FrameOther:       "other",
	charge.FrameChargeState: "charge_state",
	charge.FrameSocPercent:  "soc_percent",
	charge.FrameEnergyState: "energy_state",
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.Active.Inc()
}

func (m *Metrics) frame(log string, kind charge.FrameKind) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(log, kindLabels[kind]).Inc()
}

func (m *Metrics) ended(log string, outcome models.ReplayStatus, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Active.Dec()
	m.Replays.WithLabelValues(log, string(outcome)).Inc()
	m.Duration.WithLabelValues(log).Observe(elapsed.Seconds())
}
