// Package planning answers the pre-experiment questions: how many users each
// arm needs, how much power a given size buys, and how many days the
// experiment has to run under a traffic budget.
//
// Two sample-size formulations live here and are deliberately kept apart.
// SampleSize solves the t-test power equation for the arcsine effect size and
// rounds up to the next thousand; DirectSampleSize uses the closed-form
// proportion formula and feeds the duration estimator.
package planning

import (
	"fmt"
	"math"

	"goabtest/domain/experiment"
	"goabtest/internal/distributions"
	"goabtest/internal/errors"
)

const (
	// SampleSizeGranularity is the multiple SampleSize rounds up to
	SampleSizeGranularity = 1000

	minGroupSize    = 2 // smallest n with positive degrees of freedom
	solveUpperLimit = 1e12
	solveTolerance  = 1e-8
	solveMaxIter    = 200
)

// EffectSize is the arcsine-transformed difference 2*asin(sqrt(p2)) - 2*asin(sqrt(p1)).
// Proportions outside [0, 1] have no transform and yield a computation error.
func EffectSize(p1, p2 float64) (float64, error) {
	h := 2*math.Asin(math.Sqrt(p2)) - 2*math.Asin(math.Sqrt(p1))
	if math.IsNaN(h) {
		return math.NaN(), errors.Computation("effect size",
			fmt.Errorf("proportions %g and %g must lie in [0, 1]", p1, p2))
	}
	return h, nil
}

// SolveSampleSize returns the unrounded per-group n at which a two-sided,
// equal-groups t test reaches the requested power for effect at alpha.
func SolveSampleSize(effect, alpha, power float64) (float64, error) {
	if math.IsNaN(effect) || math.IsInf(effect, 0) {
		return math.NaN(), errors.Computation("sample size solve", fmt.Errorf("effect size %v is not finite", effect))
	}
	if !(alpha > 0 && alpha < 1) || !(power > 0 && power < 1) {
		return math.NaN(), errors.Computation("sample size solve",
			fmt.Errorf("alpha %g and power %g must lie in (0, 1)", alpha, power))
	}

	gap := func(n float64) float64 { return Power(effect, n, alpha) - power }
	if gap(minGroupSize) >= 0 {
		return minGroupSize, nil
	}

	hi, err := distributions.ExpandUpper(gap, minGroupSize, 1024, solveUpperLimit)
	if err != nil {
		return math.NaN(), errors.Computation("sample size solve",
			fmt.Errorf("power %g unreachable for effect size %g: %w", power, effect, err))
	}
	n, err := distributions.Brent(gap, minGroupSize, hi, solveTolerance, solveMaxIter)
	if err != nil {
		return math.NaN(), errors.Computation("sample size solve", err)
	}
	return n, nil
}

// SampleSize computes the coarse per-group and total sample size for params,
// rounding the solved n up to the next multiple of SampleSizeGranularity.
func SampleSize(params experiment.ParameterSet) (experiment.SampleSizeResult, error) {
	effect, err := EffectSize(params.BaselineRate, params.TreatmentRate())
	if err != nil {
		return experiment.SampleSizeResult{}, err
	}

	n, err := SolveSampleSize(effect, params.Alpha, params.Power)
	if err != nil {
		return experiment.SampleSizeResult{}, err
	}

	perGroup := roundUpTo(n, SampleSizeGranularity)
	return experiment.SampleSizeResult{
		EffectSize:         effect,
		SampleSizePerGroup: perGroup,
		TotalSampleSize:    2 * perGroup,
	}, nil
}

// CoarseDuration turns the rounded SampleSize total into whole days of traffic.
// Zero visitors or zero allocation is not an error: DurationDays is +Inf.
func CoarseDuration(params experiment.ParameterSet, dailyVisitors, allocation float64) (experiment.CoarseDuration, error) {
	if dailyVisitors < 0 || allocation < 0 || allocation > 1 {
		return experiment.CoarseDuration{}, errors.Newf(errors.CodeInvalidInput,
			"daily visitors must be >= 0 and allocation within [0, 1], got %g and %g", dailyVisitors, allocation)
	}

	size, err := SampleSize(params)
	if err != nil {
		return experiment.CoarseDuration{}, err
	}

	daily := dailyVisitors * allocation
	days := math.Inf(1)
	if daily > 0 {
		days = math.Ceil(float64(size.TotalSampleSize) / daily)
	}
	return experiment.CoarseDuration{
		TotalSampleRequired: size.TotalSampleSize,
		DailyParticipants:   daily,
		DurationDays:        days,
	}, nil
}

func roundUpTo(n float64, multiple int) int {
	return int(math.Ceil(n/float64(multiple))) * multiple
}
