package charge

import (
	"strconv"

	"github.com/charge-telemetry/backend/internal/models"
	"github.com/charge-telemetry/backend/internal/signaldb"
)

// FrameKind is the charging-relevant role of a frame identifier.
type FrameKind int

const (
	FrameOther FrameKind = iota
	FrameChargeState
	FrameSocPercent
	FrameEnergyState
)

// Frame identifiers of the charging telemetry.
const (
	ChargeStateID uint32 = 0x204
	SocPercentID  uint32 = 0x292
	EnergyStateID uint32 = 0x352
)

// Signal names consumed by the tracker.
const (
	SigMainState              = "PCS_chgMainState"
	SigInstantACPower         = "PCS_chgInstantAcPowerAvailable"
	SigSOCUI                  = "SOCUI292"
	SigSOCMin                 = "SOCmin292"
	SigSOCMax                 = "SOCmax292"
	SigEnergyToChargeComplete = "BMS_energyToChargeComplete"
	SigNominalEnergyRemaining = "BMS_nominalEnergyRemaining"
)

// Default validity window for nominal energy remaining readings.
const (
	DefaultMinEnergyKWh = 10.0
	DefaultMaxEnergyKWh = 120.0
)

// KindOf resolves the role of a frame identifier.
func KindOf(id uint32) FrameKind {
	switch id {
	case ChargeStateID:
		return FrameChargeState
	case SocPercentID:
		return FrameSocPercent
	case EnergyStateID:
		return FrameEnergyState
	default:
		return FrameOther
	}
}

var labelStatus = map[string]models.ChargeStatusKind{
	"PCS_CHG_STATE_IDLE":     models.ChargeStatusIdle,
	"PCS_CHG_STATE_CHARGING": models.ChargeStatusCharging,
	"PCS_CHG_STATE_DONE":     models.ChargeStatusComplete,
	"PCS_CHG_STATE_PAUSED":   models.ChargeStatusPaused,
	"PCS_CHG_STATE_ERROR":    models.ChargeStatusError,
	"PCS_CHG_STATE_READY":    models.ChargeStatusReady,
}

var codeStatus = map[int64]models.ChargeStatusKind{
	0: models.ChargeStatusIdle,
	1: models.ChargeStatusCharging,
	2: models.ChargeStatusComplete,
	3: models.ChargeStatusPaused,
	4: models.ChargeStatusError,
	5: models.ChargeStatusReady,
}

var chargingLabels = map[string]bool{
	"PCS_CHG_STATE_CHARGING": true,
	"PCS_CHG_STATE_READY":    true,
	"PCS_CHG_STATE_ENABLE":   true,
}

// ParseStatus maps a decoded main-state value to a status. Labelled values use
// the label table; bare numbers use the code table.
func ParseStatus(v signaldb.Value) models.ChargeStatus {
	if v.Label != "" {
		if kind, ok := labelStatus[v.Label]; ok {
			return models.ChargeStatus{Kind: kind}
		}
		return models.ChargeStatus{Kind: models.ChargeStatusUnknown, Code: v.Label}
	}
	code := int64(v.Physical)
	if kind, ok := codeStatus[code]; ok && float64(code) == v.Physical {
		return models.ChargeStatus{Kind: kind}
	}
	return models.ChargeStatus{Kind: models.ChargeStatusUnknown, Code: strconv.FormatFloat(v.Physical, 'f', -1, 64)}
}

func affirmsCharging(v signaldb.Value, status models.ChargeStatus) bool {
	if v.Label != "" {
		return chargingLabels[v.Label]
	}
	return status.Kind == models.ChargeStatusCharging || status.Kind == models.ChargeStatusReady
}

// Tracker folds decoded signal batches into a State.
type Tracker struct {
	state     *State
	skipIdle  bool
	minEnergy float64
	maxEnergy float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithEnergyWindow overrides the accepted nominal energy range (inclusive).
func WithEnergyWindow(min, max float64) TrackerOption {
	return func(t *Tracker) {
		t.minEnergy = min
		t.maxEnergy = max
	}
}

// NewTracker creates a tracker over a fresh State.
func NewTracker(skipIdle bool, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		state:     NewState(),
		skipIdle:  skipIdle,
		minEnergy: DefaultMinEnergyKWh,
		maxEnergy: DefaultMaxEnergyKWh,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State exposes the accumulator.
func (t *Tracker) State() *State {
	return t.state
}

// Apply updates the state from the signals of one frame. A nil batch is a no-op.
func (t *Tracker) Apply(id uint32, sigs signaldb.Signals) {
	if len(sigs) == 0 {
		return
	}
	switch KindOf(id) {
	case FrameChargeState:
		t.applyChargeState(sigs)
	case FrameSocPercent:
		t.applySocPercent(sigs)
	case FrameEnergyState:
		t.applyEnergyState(sigs)
	}
}

func (t *Tracker) applyChargeState(sigs signaldb.Signals) {
	s := t.state
	if v, ok := sigs[SigMainState]; ok {
		s.Status = ParseStatus(v)
		if !s.IsCharging && affirmsCharging(v, s.Status) {
			s.markCharging()
		}
	}
	if v, ok := sigs[SigInstantACPower]; ok {
		s.InstantACPowerKW = v.Physical
		if s.InstantACPowerKW > 0 && !s.IsCharging {
			s.markCharging()
		}
	}
}

func (t *Tracker) applySocPercent(sigs signaldb.Signals) {
	s := t.state
	if v, ok := sigs[SigSOCUI]; ok {
		s.SOCUIPercent = v.Physical
		if s.InitialSOCPercent == nil && s.IsCharging {
			s.InitialSOCPercent = ptr(v.Physical)
		}
	}
	if v, ok := sigs[SigSOCMin]; ok {
		s.SOCMinPercent = v.Physical
	}
	if v, ok := sigs[SigSOCMax]; ok {
		s.SOCMaxPercent = v.Physical
	}
}

func (t *Tracker) applyEnergyState(sigs signaldb.Signals) {
	s := t.state
	if v, ok := sigs[SigEnergyToChargeComplete]; ok {
		s.EnergyToChargeCompleteKWh = v.Physical
		if s.prevEnergyToComplete != nil && v.Physical < *s.prevEnergyToComplete && !s.IsCharging {
			s.markCharging()
		}
		s.prevEnergyToComplete = ptr(v.Physical)
	}
	if v, ok := sigs[SigNominalEnergyRemaining]; ok {
		kwh := v.Physical
		if kwh < t.minEnergy || kwh > t.maxEnergy {
			return
		}
		if s.InitialKWh == nil && (!t.skipIdle || s.IsCharging) {
			s.InitialKWh = ptr(kwh)
		}
		// Running maximum: trailing low readings at the end of a log are noise.
		if s.FinalKWh == nil || kwh > *s.FinalKWh {
			s.FinalKWh = ptr(kwh)
		}
	}
}
