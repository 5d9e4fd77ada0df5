// can_fixtures.go - Signal database and ASC trace fixtures for tests
package testutil

import (
	"fmt"
	"math"
	"strings"
)

// Frame identifiers used by ChargeDBC.
const (
	ChargeStateID = 0x204
	SocPercentID  = 0x292
	EnergyStateID = 0x352
	MuxTestID     = 0x4D2
)

// Charger main-state raw codes defined in ChargeDBC.
const (
	StateIdle     = 0
	StateCharging = 1
	StateDone     = 2
	StatePaused   = 3
	StateError    = 4
	StateReady    = 5
	StateEnable   = 6
	StateStartup  = 7
)

// ChargeDBC is a reduced signal database covering the charging identifiers.
const ChargeDBC = `VERSION ""

NS_ :
	CM_
	VAL_

BS_:

BU_: PCS BMS

BO_ 516 PCS_chgStatus: 8 PCS
 SG_ PCS_chgMainState : 0|4@1+ (1,0) [0|15] "" Vector__XXX
 SG_ PCS_chgInstantAcPowerAvailable : 8|8@1+ (0.1,0) [0|25.5] "kW" Vector__XXX

BO_ 658 BMS_socStatus: 8 BMS
 SG_ SOCUI292 : 0|10@1+ (0.1,0) [0|102.3] "%" Vector__XXX
 SG_ SOCmin292 : 10|10@1+ (0.1,0) [0|102.3] "%" Vector__XXX
 SG_ SOCmax292 : 20|10@1+ (0.1,0) [0|102.3] "%" Vector__XXX

BO_ 850 BMS_energyStatus: 8 BMS
 SG_ BMS_nominalEnergyRemaining : 0|11@1+ (0.1,0) [0|204.7] "kWh" Vector__XXX
 SG_ BMS_energyToChargeComplete : 11|11@1+ (0.1,0) [0|204.7] "kWh" Vector__XXX

BO_ 1234 BMS_muxTest: 8 BMS
 SG_ MuxIndex M : 0|2@1+ (1,0) [0|3] "" Vector__XXX
 SG_ MuxA m0 : 8|8@1+ (1,0) [0|255] "" Vector__XXX
 SG_ MuxB m1 : 8|8@1- (1,-10) [-138|117] "" Vector__XXX

VAL_ 516 PCS_chgMainState 0 "PCS_CHG_STATE_IDLE" 1 "PCS_CHG_STATE_CHARGING" 2 "PCS_CHG_STATE_DONE" 3 "PCS_CHG_STATE_PAUSED" 4 "PCS_CHG_STATE_ERROR" 5 "PCS_CHG_STATE_READY" 6 "PCS_CHG_STATE_ENABLE" 7 "PCS_CHG_STATE_STARTUP" ;
`

// Field is one little-endian bit field of a payload.
type Field struct {
	Start  uint
	Length uint
	Raw    uint64
}

// Pack lays out fields in an 8-byte little-endian payload.
func Pack(fields ...Field) []byte {
	data := make([]byte, 8)
	for _, f := range fields {
		for i := uint(0); i < f.Length; i++ {
			if f.Raw>>i&1 == 1 {
				bit := f.Start + i
				data[bit/8] |= 1 << (bit % 8)
			}
		}
	}
	return data
}

// FrameLine formats an ASC data line.
func FrameLine(ts float64, id uint32, payload []byte) string {
	hexBytes := make([]string, len(payload))
	for i, b := range payload {
		hexBytes[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%.6f 1  %X  Rx   d %d %s", ts, id, len(payload), strings.Join(hexBytes, " "))
}

func tenths(v float64) uint64 {
	return uint64(math.Round(v * 10))
}

// ChargeStateLine encodes a charger main-state frame.
func ChargeStateLine(ts float64, state uint64, acPowerKW float64) string {
	return FrameLine(ts, ChargeStateID, Pack(
		Field{Start: 0, Length: 4, Raw: state},
		Field{Start: 8, Length: 8, Raw: tenths(acPowerKW)},
	))
}

// SocLine encodes a state-of-charge frame.
func SocLine(ts, ui, min, max float64) string {
	return FrameLine(ts, SocPercentID, Pack(
		Field{Start: 0, Length: 10, Raw: tenths(ui)},
		Field{Start: 10, Length: 10, Raw: tenths(min)},
		Field{Start: 20, Length: 10, Raw: tenths(max)},
	))
}

// EnergyLine encodes a battery energy frame.
func EnergyLine(ts, nominalRemainingKWh, toChargeCompleteKWh float64) string {
	return FrameLine(ts, EnergyStateID, Pack(
		Field{Start: 0, Length: 11, Raw: tenths(nominalRemainingKWh)},
		Field{Start: 11, Length: 11, Raw: tenths(toChargeCompleteKWh)},
	))
}

// UnknownLine is a well-formed frame whose identifier is not in ChargeDBC.
func UnknownLine(ts float64) string {
	return FrameLine(ts, 0x545, []byte{0x14, 0x00, 0x3F, 0xF0, 0xAB, 0xBF, 0xCA, 0xC1})
}

// ASCHeader is the preamble of a Vector ASC export.
const ASCHeader = `date Sun Jan 13 10:00:00 am 2019
base hex  timestamps absolute
internal events logged
// version 9.0.0
Begin Triggerblock Sun Jan 13 10:00:00 am 2019
`

// ASC joins lines into a trace with the standard header.
func ASC(lines ...string) string {
	return ASCHeader + strings.Join(lines, "\n") + "\n"
}
