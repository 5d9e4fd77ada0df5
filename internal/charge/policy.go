package charge

// DefaultSnapshotInterval is the number of counted frames between progress snapshots.
const DefaultSnapshotInterval = 1000

// Gate decides which accepted frames are counted and when a snapshot is due.
// Idle-skip suppresses counting and emission until charging is detected;
// tracking itself is never suppressed.
type Gate struct {
	skipIdle bool
	interval uint64
}

// NewGate creates a gate. An interval of zero disables periodic snapshots.
func NewGate(skipIdle bool, interval uint64) *Gate {
	return &Gate{skipIdle: skipIdle, interval: interval}
}

// SkipIdle reports whether idle-skip is enabled.
func (g *Gate) SkipIdle() bool {
	return g.skipIdle
}

// Admit counts one accepted frame and reports whether a snapshot is due.
func (g *Gate) Admit(s *State) bool {
	if g.skipIdle && !s.IsCharging {
		s.SkippedIdleCount++
		return false
	}
	s.MessageCount++
	return g.interval > 0 && s.MessageCount%g.interval == 0
}

// DurationLimiter halts a replay once log-relative elapsed time exceeds a budget.
type DurationLimiter struct {
	budget   *float64
	exceeded bool
}

// NewDurationLimiter creates a limiter. A nil budget never halts.
func NewDurationLimiter(budget *float64) *DurationLimiter {
	return &DurationLimiter{budget: budget}
}

// Observe records a line timestamp and reports whether the replay must stop.
func (d *DurationLimiter) Observe(s *State, ts float64) bool {
	if s.LogStartTimestamp == nil {
		s.LogStartTimestamp = ptr(ts)
	}
	s.LastTimestamp = ts

	if d.budget != nil && ts-*s.LogStartTimestamp > *d.budget {
		d.exceeded = true
		return true
	}
	return false
}

// Budget returns the configured budget, if any.
func (d *DurationLimiter) Budget() *float64 {
	return d.budget
}

// Exceeded reports whether Observe halted the replay.
func (d *DurationLimiter) Exceeded() bool {
	return d.exceeded
}
