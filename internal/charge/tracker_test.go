package charge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charge-telemetry/backend/internal/models"
	"github.com/charge-telemetry/backend/internal/signaldb"
)

func num(v float64) signaldb.Value { return signaldb.Value{Physical: v} }

func label(code float64, l string) signaldb.Value {
	return signaldb.Value{Physical: code, Label: l}
}

func energy(remaining float64) signaldb.Signals {
	return signaldb.Signals{SigNominalEnergyRemaining: num(remaining)}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, FrameChargeState, KindOf(0x204))
	assert.Equal(t, FrameSocPercent, KindOf(0x292))
	assert.Equal(t, FrameEnergyState, KindOf(0x352))
	assert.Equal(t, FrameOther, KindOf(0x545))
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name  string
		value signaldb.Value
		want  string
	}{
		{"idle label", label(0, "PCS_CHG_STATE_IDLE"), "idle"},
		{"charging label", label(1, "PCS_CHG_STATE_CHARGING"), "charging"},
		{"done label", label(2, "PCS_CHG_STATE_DONE"), "complete"},
		{"paused label", label(3, "PCS_CHG_STATE_PAUSED"), "paused"},
		{"error label", label(4, "PCS_CHG_STATE_ERROR"), "error"},
		{"ready label", label(5, "PCS_CHG_STATE_READY"), "ready"},
		{"unmapped label", label(6, "PCS_CHG_STATE_ENABLE"), "unknown (PCS_CHG_STATE_ENABLE)"},
		{"integer code", num(1), "charging"},
		{"integer ready", num(5), "ready"},
		{"unknown integer", num(12), "unknown (12)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.value).String())
		})
	}
}

func TestTracker_ChargeState(t *testing.T) {
	t.Run("initial status", func(t *testing.T) {
		tr := NewTracker(true)
		assert.Equal(t, "initializing", tr.State().Status.String())
		assert.False(t, tr.State().IsCharging)
	})

	for _, l := range []string{"PCS_CHG_STATE_CHARGING", "PCS_CHG_STATE_READY", "PCS_CHG_STATE_ENABLE"} {
		t.Run("affirming label "+l, func(t *testing.T) {
			tr := NewTracker(true)
			tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: label(1, l)})
			assert.True(t, tr.State().IsCharging)
		})
	}

	t.Run("idle does not start charging", func(t *testing.T) {
		tr := NewTracker(true)
		tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: label(0, "PCS_CHG_STATE_IDLE"), SigInstantACPower: num(0)})
		assert.False(t, tr.State().IsCharging)
		assert.Equal(t, models.ChargeStatusIdle, tr.State().Status.Kind)
	})

	t.Run("positive ac power starts charging", func(t *testing.T) {
		tr := NewTracker(true)
		tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: label(0, "PCS_CHG_STATE_IDLE"), SigInstantACPower: num(7.2)})
		assert.True(t, tr.State().IsCharging)
		assert.Equal(t, 7.2, tr.State().InstantACPowerKW)
	})

	t.Run("charging never reverts", func(t *testing.T) {
		tr := NewTracker(true)
		tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: num(1)})
		require.True(t, tr.State().IsCharging)
		tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: num(0), SigInstantACPower: num(0)})
		tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: num(4)})
		assert.True(t, tr.State().IsCharging)
		assert.Equal(t, "error", tr.State().Status.String())
	})

	t.Run("signals of other kinds are ignored", func(t *testing.T) {
		tr := NewTracker(true)
		tr.Apply(0x545, signaldb.Signals{SigMainState: num(1)})
		tr.Apply(ChargeStateID, nil)
		assert.False(t, tr.State().IsCharging)
	})
}

func TestTracker_SocPercent(t *testing.T) {
	tr := NewTracker(true)
	tr.Apply(SocPercentID, signaldb.Signals{SigSOCUI: num(40), SigSOCMin: num(39.5), SigSOCMax: num(40.5)})
	assert.Nil(t, tr.State().InitialSOCPercent, "initial SOC waits for charging")
	assert.Equal(t, 40.0, tr.State().SOCUIPercent)

	tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: num(1)})
	tr.Apply(SocPercentID, signaldb.Signals{SigSOCUI: num(41)})
	tr.Apply(SocPercentID, signaldb.Signals{SigSOCUI: num(42), SigSOCMax: num(43)})

	s := tr.State()
	require.NotNil(t, s.InitialSOCPercent)
	assert.Equal(t, 41.0, *s.InitialSOCPercent)
	assert.Equal(t, 42.0, s.SOCUIPercent)
	assert.Equal(t, 39.5, s.SOCMinPercent)
	assert.Equal(t, 43.0, s.SOCMaxPercent)
}

func TestTracker_EnergyState(t *testing.T) {
	t.Run("decreasing energy to complete starts charging", func(t *testing.T) {
		tr := NewTracker(true)
		tr.Apply(EnergyStateID, signaldb.Signals{SigEnergyToChargeComplete: num(30)})
		assert.False(t, tr.State().IsCharging)
		tr.Apply(EnergyStateID, signaldb.Signals{SigEnergyToChargeComplete: num(30)})
		assert.False(t, tr.State().IsCharging)
		tr.Apply(EnergyStateID, signaldb.Signals{SigEnergyToChargeComplete: num(29.9)})
		assert.True(t, tr.State().IsCharging)
		assert.Equal(t, 29.9, tr.State().EnergyToChargeCompleteKWh)
	})

	t.Run("initial energy waits for charging with idle skip", func(t *testing.T) {
		tr := NewTracker(true)
		tr.Apply(EnergyStateID, energy(40))
		assert.Nil(t, tr.State().InitialKWh)
		require.NotNil(t, tr.State().FinalKWh)
		assert.Equal(t, 40.0, *tr.State().FinalKWh)

		tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: num(1)})
		tr.Apply(EnergyStateID, energy(41))
		assert.Equal(t, 41.0, *tr.State().InitialKWh)
	})

	t.Run("initial energy taken immediately without idle skip", func(t *testing.T) {
		tr := NewTracker(false)
		tr.Apply(EnergyStateID, energy(40))
		require.NotNil(t, tr.State().InitialKWh)
		assert.Equal(t, 40.0, *tr.State().InitialKWh)
	})

	t.Run("final energy is a running maximum", func(t *testing.T) {
		tr := NewTracker(false)
		readings := []float64{50, 55, 53, 65, 12.4, 64.9}
		prev := 0.0
		for _, r := range readings {
			tr.Apply(EnergyStateID, energy(r))
			cur := *tr.State().FinalKWh
			assert.GreaterOrEqual(t, cur, prev)
			prev = cur
		}
		assert.Equal(t, 65.0, *tr.State().FinalKWh)
		assert.Equal(t, 50.0, *tr.State().InitialKWh)
	})

	t.Run("out of range readings are discarded", func(t *testing.T) {
		tr := NewTracker(false)
		for _, r := range []float64{9.99, 120.01, 0, 204.7} {
			tr.Apply(EnergyStateID, energy(r))
		}
		assert.Nil(t, tr.State().InitialKWh)
		assert.Nil(t, tr.State().FinalKWh)

		tr.Apply(EnergyStateID, energy(10))
		tr.Apply(EnergyStateID, energy(120))
		tr.Apply(EnergyStateID, energy(150))
		assert.Equal(t, 10.0, *tr.State().InitialKWh)
		assert.Equal(t, 120.0, *tr.State().FinalKWh)
	})

	t.Run("custom energy window", func(t *testing.T) {
		tr := NewTracker(false, WithEnergyWindow(50, 60))
		tr.Apply(EnergyStateID, energy(45))
		tr.Apply(EnergyStateID, energy(55))
		assert.Equal(t, 55.0, *tr.State().InitialKWh)
	})
}

func TestTracker_EvaluationOrder(t *testing.T) {
	// Within one energy batch the decreasing-energy heuristic runs before the
	// nominal energy reading, so the same frame can set the initial energy.
	tr := NewTracker(true)
	tr.Apply(EnergyStateID, signaldb.Signals{SigEnergyToChargeComplete: num(20), SigNominalEnergyRemaining: num(50)})
	assert.Nil(t, tr.State().InitialKWh)
	tr.Apply(EnergyStateID, signaldb.Signals{SigEnergyToChargeComplete: num(19), SigNominalEnergyRemaining: num(51)})
	require.NotNil(t, tr.State().InitialKWh)
	assert.Equal(t, 51.0, *tr.State().InitialKWh)
}
