package models

// Wire records pushed to stream consumers. Field order is part of the contract:
// encoding/json emits struct fields in declaration order.

// RecordStatusFinished and RecordStatusError mark terminal records.
const (
	RecordStatusFinished = "finished"
	RecordStatusError    = "error"
)

// ProgressRecord is a periodic snapshot of the tracked charging session.
type ProgressRecord struct {
	Status                    string  `json:"status"`
	InstantACPowerKW          float64 `json:"instant_ac_power_kw"`
	SOCUIPercent              float64 `json:"soc_ui_percent"`
	SOCMinPercent             float64 `json:"soc_min_percent"`
	SOCMaxPercent             float64 `json:"soc_max_percent"`
	InitialKWh                float64 `json:"initial_kwh"`
	CurrentKWh                float64 `json:"current_kwh"`
	EnergyToChargeCompleteKWh float64 `json:"energy_to_charge_complete_kwh"`
	MessagesProcessed         uint64  `json:"messages_processed"`
	SkippedIdleLines          uint64  `json:"skipped_idle_lines,omitempty"`
	ChargingStarted           bool    `json:"charging_started,omitempty"`
}

// SummaryRecord is the terminal record of a completed replay.
type SummaryRecord struct {
	Status                string   `json:"status"`
	LogFile               string   `json:"log_file"`
	InitialKWh            float64  `json:"initial_kwh"`
	FinalKWh              float64  `json:"final_kwh"`
	TotalKWhCharged       float64  `json:"total_kwh_charged"`
	InitialSOCPercent     float64  `json:"initial_soc_percent"`
	FinalSOCUIPercent     float64  `json:"final_soc_ui_percent"`
	FinalSOCMinPercent    float64  `json:"final_soc_min_percent"`
	FinalSOCMaxPercent    float64  `json:"final_soc_max_percent"`
	BatteryBalancePercent float64  `json:"battery_balance_percent"`
	CarbonReductionKg     float64  `json:"carbon_reduction_kg"`
	RewardPoints          float64  `json:"reward_points"`
	TotalMessages         uint64   `json:"total_messages"`
	SkipIdleEnabled       *bool    `json:"skip_idle_enabled,omitempty"`
	SkippedIdleLines      *uint64  `json:"skipped_idle_lines,omitempty"`
	DurationLimitSeconds  *float64 `json:"duration_limit_seconds,omitempty"`
	DurationExceeded      *bool    `json:"duration_exceeded,omitempty"`
	ActualDurationSeconds *float64 `json:"actual_duration_seconds,omitempty"`
}

// ErrorRecord is sent as the only record of a stream that cannot run.
type ErrorRecord struct {
	Status        string   `json:"status"`
	Error         string   `json:"error"`
	AvailableLogs []string `json:"available_logs,omitempty"`
}

// NewErrorRecord builds an error record.
func NewErrorRecord(message string, availableLogs []string) *ErrorRecord {
	return &ErrorRecord{
		Status:        RecordStatusError,
		Error:         message,
		AvailableLogs: availableLogs,
	}
}
