package charge

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/charge-telemetry/backend/internal/models"
)

// exactExponent is low enough that every float64 converts to a decimal without loss.
const exactExponent = -1074

// Round2 rounds the exact binary value of v to two decimal places, ties to even.
// Non-finite values become 0.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloatWithExponent(v, exactExponent).RoundBank(2).InexactFloat64()
}

func round2Opt(v *float64) float64 {
	if v == nil {
		return 0
	}
	return Round2(*v)
}

// Progress projects the state into a progress record.
func Progress(s *State, skipIdle bool) *models.ProgressRecord {
	rec := &models.ProgressRecord{
		Status:                    s.Status.String(),
		InstantACPowerKW:          Round2(s.InstantACPowerKW),
		SOCUIPercent:              Round2(s.SOCUIPercent),
		SOCMinPercent:             Round2(s.SOCMinPercent),
		SOCMaxPercent:             Round2(s.SOCMaxPercent),
		InitialKWh:                round2Opt(s.InitialKWh),
		CurrentKWh:                round2Opt(s.FinalKWh),
		EnergyToChargeCompleteKWh: Round2(s.EnergyToChargeCompleteKWh),
		MessagesProcessed:         s.MessageCount,
	}
	if skipIdle && s.SkippedIdleCount > 0 {
		rec.SkippedIdleLines = s.SkippedIdleCount
		rec.ChargingStarted = s.IsCharging
	}
	return rec
}

// SummaryOptions carries the replay parameters echoed in the summary.
type SummaryOptions struct {
	LogName          string
	SkipIdle         bool
	DurationLimit    *float64
	DurationExceeded bool
}

// Summary builds the terminal record from the final state.
func Summary(s *State, calc Calculator, opts SummaryOptions) *models.SummaryRecord {
	m := calc.Compute(s.InitialKWh, s.FinalKWh)

	rec := &models.SummaryRecord{
		Status:                models.RecordStatusFinished,
		LogFile:               opts.LogName,
		InitialKWh:            round2Opt(s.InitialKWh),
		FinalKWh:              round2Opt(s.FinalKWh),
		TotalKWhCharged:       Round2(m.TotalKWhCharged),
		InitialSOCPercent:     round2Opt(s.InitialSOCPercent),
		FinalSOCUIPercent:     Round2(s.SOCUIPercent),
		FinalSOCMinPercent:    Round2(s.SOCMinPercent),
		FinalSOCMaxPercent:    Round2(s.SOCMaxPercent),
		BatteryBalancePercent: Round2(s.SOCMaxPercent - s.SOCMinPercent),
		CarbonReductionKg:     Round2(m.CarbonReductionKg),
		RewardPoints:          Round2(m.RewardPoints),
		TotalMessages:         s.MessageCount,
	}

	if opts.SkipIdle {
		rec.SkipIdleEnabled = ptr(true)
		rec.SkippedIdleLines = ptr(s.SkippedIdleCount)
	}

	if opts.DurationLimit != nil {
		rec.DurationLimitSeconds = ptr(*opts.DurationLimit)
		rec.DurationExceeded = ptr(opts.DurationExceeded)
		if s.LogStartTimestamp != nil {
			rec.ActualDurationSeconds = ptr(Round2(s.LastTimestamp - *s.LogStartTimestamp))
		}
	}
	return rec
}
