package charge

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charge-telemetry/backend/internal/signaldb"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 7.41, Round2(15*0.494))
	assert.Equal(t, 74.1, Round2(15*0.494*10))
	assert.Equal(t, -2.35, Round2(-2.345))

	// 1.005 and 2.675 sit just below the midpoint in binary
	assert.Equal(t, 1.0, Round2(1.005))
	assert.Equal(t, 2.67, Round2(2.675))
	// exact midpoints go to the even digit
	assert.Equal(t, 0.12, Round2(0.125))
	assert.Equal(t, 0.38, Round2(0.375))
	assert.Equal(t, -0.12, Round2(-0.125))
	assert.Equal(t, 1.26, Round2(4.256-3.0))
	assert.Equal(t, 0.0, Round2(math.NaN()))
	assert.Equal(t, 0.0, Round2(math.Inf(1)))
}

func TestCalculator(t *testing.T) {
	calc := DefaultCalculator()

	pairs := [][2]float64{{50, 65}, {10, 120}, {70.3, 71.1}, {60, 60}}
	for _, p := range pairs {
		m := calc.Compute(ptr(p[0]), ptr(p[1]))
		total := p[1] - p[0]
		assert.Equal(t, total, m.TotalKWhCharged)
		assert.Equal(t, total*0.494, m.CarbonReductionKg)
		assert.Equal(t, total*0.494*10.0, m.RewardPoints)
	}

	m := calc.Compute(nil, ptr(65.0))
	assert.Zero(t, m.TotalKWhCharged)
	assert.Zero(t, m.CarbonReductionKg)
	assert.Zero(t, m.RewardPoints)
}

func TestProgress(t *testing.T) {
	tr := NewTracker(true)
	s := tr.State()

	rec := Progress(s, true)
	assert.Equal(t, "initializing", rec.Status)
	assert.Zero(t, rec.InitialKWh)
	assert.Zero(t, rec.SkippedIdleLines)

	s.SkippedIdleCount = 3
	tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: num(1), SigInstantACPower: num(7.234)})
	tr.Apply(EnergyStateID, energy(50.006))
	s.MessageCount = 1000

	rec = Progress(s, true)
	assert.Equal(t, "charging", rec.Status)
	assert.Equal(t, 7.23, rec.InstantACPowerKW)
	assert.Equal(t, 50.01, rec.InitialKWh)
	assert.Equal(t, 50.01, rec.CurrentKWh)
	assert.Equal(t, uint64(3), rec.SkippedIdleLines)
	assert.True(t, rec.ChargingStarted)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t,
		`{"status":"charging","instant_ac_power_kw":7.23,"soc_ui_percent":0,"soc_min_percent":0,"soc_max_percent":0,`+
			`"initial_kwh":50.01,"current_kwh":50.01,"energy_to_charge_complete_kwh":0,"messages_processed":1000,`+
			`"skipped_idle_lines":3,"charging_started":true}`,
		string(out))

	rec = Progress(s, false)
	out, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "skipped_idle_lines")
	assert.NotContains(t, string(out), "charging_started")
}

func TestSummary(t *testing.T) {
	t.Run("charging session", func(t *testing.T) {
		tr := NewTracker(true)
		tr.Apply(ChargeStateID, signaldb.Signals{SigMainState: num(1)})
		tr.Apply(SocPercentID, signaldb.Signals{SigSOCUI: num(40), SigSOCMin: num(39), SigSOCMax: num(41.5)})
		tr.Apply(EnergyStateID, energy(50))
		tr.Apply(EnergyStateID, energy(65))
		s := tr.State()
		s.MessageCount = 4

		rec := Summary(s, DefaultCalculator(), SummaryOptions{LogName: "charge", SkipIdle: true})
		assert.Equal(t, "finished", rec.Status)
		assert.Equal(t, "charge", rec.LogFile)
		assert.Equal(t, 50.0, rec.InitialKWh)
		assert.Equal(t, 65.0, rec.FinalKWh)
		assert.Equal(t, 15.0, rec.TotalKWhCharged)
		assert.Equal(t, 7.41, rec.CarbonReductionKg)
		assert.Equal(t, 74.1, rec.RewardPoints)
		assert.Equal(t, 40.0, rec.InitialSOCPercent)
		assert.Equal(t, 2.5, rec.BatteryBalancePercent)
		assert.Equal(t, uint64(4), rec.TotalMessages)
		require.NotNil(t, rec.SkipIdleEnabled)
		assert.True(t, *rec.SkipIdleEnabled)
		assert.Nil(t, rec.DurationLimitSeconds)
	})

	t.Run("empty session", func(t *testing.T) {
		rec := Summary(NewState(), DefaultCalculator(), SummaryOptions{LogName: "charge"})
		out, err := json.Marshal(rec)
		require.NoError(t, err)
		assert.Equal(t,
			`{"status":"finished","log_file":"charge","initial_kwh":0,"final_kwh":0,"total_kwh_charged":0,`+
				`"initial_soc_percent":0,"final_soc_ui_percent":0,"final_soc_min_percent":0,"final_soc_max_percent":0,`+
				`"battery_balance_percent":0,"carbon_reduction_kg":0,"reward_points":0,"total_messages":0}`,
			string(out))
	})

	t.Run("duration fields", func(t *testing.T) {
		s := NewState()
		d := NewDurationLimiter(ptr(1.0))
		d.Observe(s, 3.0)
		d.Observe(s, 4.256)

		rec := Summary(s, DefaultCalculator(), SummaryOptions{
			LogName:          "supercharge",
			SkipIdle:         true,
			DurationLimit:    d.Budget(),
			DurationExceeded: d.Exceeded(),
		})
		require.NotNil(t, rec.DurationExceeded)
		assert.True(t, *rec.DurationExceeded)
		assert.Equal(t, 1.0, *rec.DurationLimitSeconds)
		assert.Equal(t, 1.26, *rec.ActualDurationSeconds)
		assert.Equal(t, uint64(0), *rec.SkippedIdleLines)
	})
}
