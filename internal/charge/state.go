// Package charge reconstructs a charging session from decoded CAN signals.
package charge

import "github.com/charge-telemetry/backend/internal/models"

// State is the accumulator of one replay. It is owned by a single goroutine.
type State struct {
	Status                    models.ChargeStatus
	InstantACPowerKW          float64
	SOCUIPercent              float64
	SOCMinPercent             float64
	SOCMaxPercent             float64
	InitialSOCPercent         *float64
	InitialKWh                *float64
	FinalKWh                  *float64 // running maximum of valid readings
	EnergyToChargeCompleteKWh float64
	IsCharging                bool
	MessageCount              uint64
	SkippedIdleCount          uint64
	LogStartTimestamp         *float64
	LastTimestamp             float64 // valid when LogStartTimestamp is set

	prevEnergyToComplete *float64
}

// NewState returns the initial accumulator.
func NewState() *State {
	return &State{Status: models.ChargeStatus{Kind: models.ChargeStatusInitializing}}
}

// markCharging flips IsCharging on. It never resets.
func (s *State) markCharging() {
	s.IsCharging = true
}

func ptr[T any](v T) *T {
	return &v
}
