package experiment

import (
	"encoding/json"
	"math"
)

// SampleSizeResult is the coarse, effect-size based sample size.
// TotalSampleSize is always twice SampleSizePerGroup.
type SampleSizeResult struct {
	EffectSize         float64 `json:"effect_size"`
	SampleSizePerGroup int     `json:"sample_size_per_group"`
	TotalSampleSize    int     `json:"total_sample_size"`
}

// PowerCurve holds achieved power aligned with ascending per-group sample sizes
type PowerCurve struct {
	EffectSize  float64   `json:"effect_size"`
	SampleSizes []int     `json:"sample_sizes"`
	PowerValues []float64 `json:"power_values"`
}

// DurationResult is the calendar plan for an experiment.
// DaysRequired is +Inf when no traffic reaches the experiment.
type DurationResult struct {
	SampleSizePerVariant   int     `json:"sample_size_per_variant"`
	TotalSampleSize        int     `json:"total_sample_size"`
	ControlSampleSize      int     `json:"control_sample_size"`
	TreatmentSampleSize    int     `json:"treatment_sample_size"`
	DaysRequired           float64 `json:"-"`
	DailyExperimentTraffic float64 `json:"daily_experiment_traffic"`
}

// Completable is false when the experiment never reaches its sample size
func (d DurationResult) Completable() bool {
	return !math.IsInf(d.DaysRequired, 1)
}

type durationResultJSON struct {
	durationAlias
	DaysRequired *float64 `json:"days_required"`
	DaysInfinite bool     `json:"days_infinite"`
}

type durationAlias DurationResult

func (d DurationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(durationResultJSON{
		durationAlias: durationAlias(d),
		DaysRequired:  finite(d.DaysRequired),
		DaysInfinite:  math.IsInf(d.DaysRequired, 1),
	})
}

func (d *DurationResult) UnmarshalJSON(b []byte) error {
	var aux durationResultJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*d = DurationResult(aux.durationAlias)
	d.DaysRequired = restore(aux.DaysRequired, aux.DaysInfinite)
	return nil
}

// CoarseDuration is the whole-day duration implied by the rounded effect-size sample size.
// DurationDays is +Inf when no visitors reach the experiment.
type CoarseDuration struct {
	TotalSampleRequired int     `json:"total_sample_required"`
	DailyParticipants   float64 `json:"daily_participants"`
	DurationDays        float64 `json:"-"`
}

type coarseAlias CoarseDuration

func (c CoarseDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		coarseAlias
		DurationDays *float64 `json:"duration_days"`
		DaysInfinite bool     `json:"days_infinite"`
	}{coarseAlias(c), finite(c.DurationDays), math.IsInf(c.DurationDays, 1)})
}

// TrafficPoint is one row of a duration-vs-traffic sweep; TrafficAllocation is a percentage
type TrafficPoint struct {
	TrafficAllocation      float64 `json:"traffic_allocation"`
	DaysRequired           float64 `json:"-"`
	DailyExperimentTraffic float64 `json:"daily_experiment_traffic"`
	TotalSampleSize        int     `json:"total_sample_size"`
}

type trafficAlias TrafficPoint

func (t TrafficPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		trafficAlias
		DaysRequired *float64 `json:"days_required"`
		DaysInfinite bool     `json:"days_infinite"`
	}{trafficAlias(t), finite(t.DaysRequired), math.IsInf(t.DaysRequired, 1)})
}

// MDEPoint is one row of a duration-vs-MDE sweep; MinimumDetectableEffect is a percentage
type MDEPoint struct {
	MinimumDetectableEffect float64 `json:"minimum_detectable_effect"`
	DaysRequired            float64 `json:"-"`
	TotalSampleSize         int     `json:"total_sample_size"`
}

type mdeAlias MDEPoint

func (m MDEPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		mdeAlias
		DaysRequired *float64 `json:"days_required"`
		DaysInfinite bool     `json:"days_infinite"`
	}{mdeAlias(m), finite(m.DaysRequired), math.IsInf(m.DaysRequired, 1)})
}

// ConfidenceInterval bounds the treatment minus control difference
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies inside the closed interval
func (ci ConfidenceInterval) Contains(v float64) bool {
	return ci.Lower <= v && v <= ci.Upper
}

// TestResult is the outcome of a two-sample hypothesis test.
// Significant holds exactly when PValue < Alpha.
type TestResult struct {
	PValue             float64            `json:"-"`
	Statistic          float64            `json:"-"`
	ControlMetric      float64            `json:"control_metric"`
	TreatmentMetric    float64            `json:"treatment_metric"`
	Difference         float64            `json:"difference"`
	RelativeDifference float64            `json:"-"` // percent of control; +Inf when control is 0
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	Significant        bool               `json:"significant"`
	Alpha              float64            `json:"alpha"`
	Method             Method             `json:"method"`
}

type testResultAlias TestResult

type testResultJSON struct {
	testResultAlias
	PValue                     *float64 `json:"p_value"`
	Statistic                  *float64 `json:"statistic"`
	RelativeDifference         *float64 `json:"relative_difference"`
	RelativeDifferenceInfinite bool     `json:"relative_difference_infinite"`
}

func (r TestResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(testResultJSON{
		testResultAlias:            testResultAlias(r),
		PValue:                     finite(r.PValue),
		Statistic:                  finite(r.Statistic),
		RelativeDifference:         finite(r.RelativeDifference),
		RelativeDifferenceInfinite: math.IsInf(r.RelativeDifference, 1),
	})
}

func (r *TestResult) UnmarshalJSON(b []byte) error {
	var aux testResultJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = TestResult(aux.testResultAlias)
	r.PValue = restore(aux.PValue, false)
	r.Statistic = restore(aux.Statistic, false)
	r.RelativeDifference = restore(aux.RelativeDifference, aux.RelativeDifferenceInfinite)
	return nil
}

// ValidationResult is the verdict of an experiment-validity diagnostic.
// Passed holds exactly when PValue >= Alpha; WarningMessage is set only on failure.
type ValidationResult struct {
	TestType       ValidationType `json:"test_type"`
	PValue         float64        `json:"-"`
	Statistic      float64        `json:"-"`
	Alpha          float64        `json:"alpha"`
	Passed         bool           `json:"passed"`
	WarningMessage string         `json:"warning_message,omitempty"`
}

type validationAlias ValidationResult

type validationResultJSON struct {
	validationAlias
	PValue    *float64 `json:"p_value"`
	Statistic *float64 `json:"statistic"`
}

func (v ValidationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(validationResultJSON{validationAlias(v), finite(v.PValue), finite(v.Statistic)})
}

func (v *ValidationResult) UnmarshalJSON(b []byte) error {
	var aux validationResultJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*v = ValidationResult(aux.validationAlias)
	v.PValue = restore(aux.PValue, false)
	v.Statistic = restore(aux.Statistic, false)
	return nil
}

// finite maps NaN and infinities to a JSON null
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func restore(v *float64, infinite bool) float64 {
	switch {
	case infinite:
		return math.Inf(1)
	case v == nil:
		return math.NaN()
	default:
		return *v
	}
}
