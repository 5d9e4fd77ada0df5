package charge

// Default conversion constants.
const (
	DefaultCarbonFactorKgPerKWh = 0.494
	DefaultPointsPerKgCarbon    = 10.0
)

// Calculator converts charged energy into carbon reduction and reward points.
type Calculator struct {
	CarbonFactorKgPerKWh float64
	PointsPerKgCarbon    float64
}

// DefaultCalculator returns a calculator with the default constants.
func DefaultCalculator() Calculator {
	return Calculator{
		CarbonFactorKgPerKWh: DefaultCarbonFactorKgPerKWh,
		PointsPerKgCarbon:    DefaultPointsPerKgCarbon,
	}
}

// Metrics are the derived figures of one session. Values are unrounded.
type Metrics struct {
	TotalKWhCharged   float64
	CarbonReductionKg float64
	RewardPoints      float64
}

// CarbonForEnergy returns the carbon reduction for kwh of charged energy.
func (c Calculator) CarbonForEnergy(kwh float64) float64 {
	return kwh * c.CarbonFactorKgPerKWh
}

// PointsForCarbon returns the reward points for kg of carbon reduction.
func (c Calculator) PointsForCarbon(kg float64) float64 {
	return kg * c.PointsPerKgCarbon
}

// Compute derives session metrics from the energy bounds. Missing bounds yield zero.
func (c Calculator) Compute(initialKWh, finalKWh *float64) Metrics {
	var total float64
	if initialKWh != nil && finalKWh != nil {
		total = *finalKWh - *initialKWh
	}
	carbon := c.CarbonForEnergy(total)
	return Metrics{
		TotalKWhCharged:   total,
		CarbonReductionKg: carbon,
		RewardPoints:      c.PointsForCarbon(carbon),
	}
}
