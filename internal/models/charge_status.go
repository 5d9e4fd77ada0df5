package models

import "fmt"

// ChargeStatusKind enumerates the charger main states.
type ChargeStatusKind int

const (
	ChargeStatusInitializing ChargeStatusKind = iota
	ChargeStatusIdle
	ChargeStatusCharging
	ChargeStatusComplete
	ChargeStatusPaused
	ChargeStatusError
	ChargeStatusReady
	ChargeStatusUnknown
)

// ChargeStatus is the decoded charger main state. Code carries the raw label or
// number for states outside the lookup table.
type ChargeStatus struct {
	Kind ChargeStatusKind
	Code string
}

// String returns the wire representation of the status.
func (s ChargeStatus) String() string {
	switch s.Kind {
	case ChargeStatusInitializing:
		return "initializing"
	case ChargeStatusIdle:
		return "idle"
	case ChargeStatusCharging:
		return "charging"
	case ChargeStatusComplete:
		return "complete"
	case ChargeStatusPaused:
		return "paused"
	case ChargeStatusError:
		return "error"
	case ChargeStatusReady:
		return "ready"
	default:
		return fmt.Sprintf("unknown (%s)", s.Code)
	}
}
