package models

// LogResource is one named CAN trace in the catalog.
type LogResource struct {
	Name        string `json:"name" yaml:"name"`
	File        string `json:"file" yaml:"file"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// LogFileStatus reports where a catalog entry resolves and whether it exists.
type LogFileStatus struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Exists   bool   `json:"exists"`
}

// CarbonTotals are the accumulated derived values of one user.
type CarbonTotals struct {
	UserID                 string  `json:"userId"`
	TotalCarbonReductionKg float64 `json:"total_carbon_reduction_kg"`
	CarbonRewardPoints     float64 `json:"carbon_reward_points"`
}
