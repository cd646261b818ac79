package experiment

// ParameterSet holds the four design inputs of an experiment.
// All fields must lie strictly between 0 and 1.
type ParameterSet struct {
	Alpha        float64 `json:"alpha" mapstructure:"alpha"`                 // Type I error budget
	Power        float64 `json:"power" mapstructure:"power"`                 // 1 - Type II error
	MDE          float64 `json:"mde" mapstructure:"mde"`                     // relative minimum detectable effect
	BaselineRate float64 `json:"baseline_rate" mapstructure:"baseline_rate"` // control conversion probability
}

// Field keys used by Validate
const (
	FieldAlpha        = "alpha"
	FieldPower        = "power"
	FieldMDE          = "mde"
	FieldBaselineRate = "baseline_rate"
)

// DefaultParameterSet returns the conventional 5% / 80% / 10% / 10% design
func DefaultParameterSet() ParameterSet {
	return ParameterSet{
		Alpha:        0.05,
		Power:        0.80,
		MDE:          0.10,
		BaselineRate: 0.10,
	}
}

// Validate reports every field outside (0, 1). The map is empty when the set is valid.
func (p ParameterSet) Validate() map[string]string {
	errs := make(map[string]string)

	if !openUnit(p.Alpha) {
		errs[FieldAlpha] = "Alpha must be between 0 and 1"
	}
	if !openUnit(p.Power) {
		errs[FieldPower] = "Power must be between 0 and 1"
	}
	if !openUnit(p.MDE) {
		errs[FieldMDE] = "MDE must be between 0 and 1"
	}
	if !openUnit(p.BaselineRate) {
		errs[FieldBaselineRate] = "Baseline rate must be between 0 and 1"
	}

	return errs
}

// TreatmentRate is the conversion rate implied by the baseline and the relative MDE
func (p ParameterSet) TreatmentRate() float64 {
	return p.BaselineRate * (1 + p.MDE)
}

// ParameterSummary is the display form of a ParameterSet
type ParameterSummary struct {
	Alpha         float64 `json:"alpha"`
	Power         float64 `json:"power"`
	MDE           float64 `json:"mde"`
	BaselineRate  float64 `json:"baseline_rate"`
	TreatmentRate float64 `json:"treatment_rate"`
}

// Summary flattens the set together with its derived treatment rate
func (p ParameterSet) Summary() ParameterSummary {
	return ParameterSummary{
		Alpha:         p.Alpha,
		Power:         p.Power,
		MDE:           p.MDE,
		BaselineRate:  p.BaselineRate,
		TreatmentRate: p.TreatmentRate(),
	}
}

// openUnit is false for NaN as well as for out-of-range values
func openUnit(v float64) bool {
	return v > 0 && v < 1
}
