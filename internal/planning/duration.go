package planning

import (
	"math"

	"goabtest/domain/experiment"
	"goabtest/internal/errors"
)

// DurationInput is everything the duration estimator needs.
// MinimumDetectableEffect is relative to BaselineRate; ControlRatio is the
// share of experiment traffic routed to control.
type DurationInput struct {
	BaselineRate            float64                   `json:"baseline_rate"`
	MinimumDetectableEffect float64                   `json:"minimum_detectable_effect"`
	DailyTraffic            float64                   `json:"daily_traffic"`
	TrafficAllocation       float64                   `json:"traffic_allocation"`
	ControlRatio            float64                   `json:"control_ratio"`
	Power                   float64                   `json:"power"`
	SignificanceLevel       float64                   `json:"significance_level"`
	Hypothesis              experiment.HypothesisType `json:"hypothesis_type"`
}

// NewDurationInput fills in full allocation, an even split, 80% power and a
// two-sided 5% test.
func NewDurationInput(baseline, mde, dailyTraffic float64) DurationInput {
	return DurationInput{
		BaselineRate:            baseline,
		MinimumDetectableEffect: mde,
		DailyTraffic:            dailyTraffic,
		TrafficAllocation:       1.0,
		ControlRatio:            0.5,
		Power:                   0.8,
		SignificanceLevel:       0.05,
		Hypothesis:              experiment.TwoSidedHypothesis,
	}
}

// Validate reports every out-of-range field. Zero traffic and zero allocation
// are valid: they produce an infinite duration.
func (in DurationInput) Validate() map[string]string {
	errs := make(map[string]string)
	if !(in.BaselineRate > 0 && in.BaselineRate < 1) {
		errs["baseline_rate"] = "Baseline rate must be between 0 and 1"
	}
	if !(in.MinimumDetectableEffect > 0) || math.IsInf(in.MinimumDetectableEffect, 0) {
		errs["minimum_detectable_effect"] = "Minimum detectable effect must be positive"
	}
	if !(in.DailyTraffic >= 0) || math.IsInf(in.DailyTraffic, 0) {
		errs["daily_traffic"] = "Daily traffic must be zero or positive"
	}
	if !(in.TrafficAllocation >= 0 && in.TrafficAllocation <= 1) {
		errs["traffic_allocation"] = "Traffic allocation must be between 0 and 1"
	}
	if !(in.ControlRatio > 0 && in.ControlRatio < 1) {
		errs["control_ratio"] = "Control ratio must be between 0 and 1"
	}
	if !(in.Power > 0 && in.Power < 1) {
		errs["power"] = "Power must be between 0 and 1"
	}
	if !(in.SignificanceLevel > 0 && in.SignificanceLevel < 1) {
		errs["significance_level"] = "Significance level must be between 0 and 1"
	}
	return errs
}

// AllocationAdjustment is the sample inflation (1+r)^2 / 4r for an arm ratio r
// (smaller arm over larger arm). It is exactly 1 at r = 1.
func AllocationAdjustment(r float64) float64 {
	return (1 + r) * (1 + r) / (4 * r)
}

// ArmRatio is min(c, 1-c) / max(c, 1-c) for a control share c
func ArmRatio(controlRatio float64) float64 {
	return math.Min(controlRatio, 1-controlRatio) / math.Max(controlRatio, 1-controlRatio)
}

// EstimateDuration computes the direct per-arm sample size, inflates the total
// for an uneven split, and converts it into days of experiment traffic.
func EstimateDuration(in DurationInput) (experiment.DurationResult, error) {
	if err := errors.Invalid(in.Validate()); err != nil {
		return experiment.DurationResult{}, err
	}

	n, err := DirectSampleSize(in.BaselineRate, in.MinimumDetectableEffect, in.Power, in.SignificanceLevel, in.Hypothesis)
	if err != nil {
		return experiment.DurationResult{}, err
	}

	var total int
	if in.ControlRatio == 0.5 {
		total = 2 * n
	} else {
		total = int(math.Ceil(float64(2*n) * AllocationAdjustment(ArmRatio(in.ControlRatio))))
	}

	daily := in.DailyTraffic * in.TrafficAllocation
	days := math.Inf(1)
	if daily > 0 {
		days = float64(total) / daily
	}

	return experiment.DurationResult{
		SampleSizePerVariant:   n,
		TotalSampleSize:        total,
		ControlSampleSize:      int(math.Ceil(float64(total) * in.ControlRatio)),
		TreatmentSampleSize:    int(math.Ceil(float64(total) * (1 - in.ControlRatio))),
		DaysRequired:           days,
		DailyExperimentTraffic: daily,
	}, nil
}
