package planning

import (
	"fmt"
	"math"

	"goabtest/domain/experiment"
	"goabtest/internal/distributions"
	"goabtest/internal/errors"
)

// DirectSampleSize is the per-arm sample size from the proportion-test standard
// errors under the null and the alternative, rounded up to an integer.
// mde is relative to baseline.
func DirectSampleSize(baseline, mde, power, alpha float64, hypothesis experiment.HypothesisType) (int, error) {
	absolute := baseline * mde
	if absolute == 0 || math.IsNaN(absolute) {
		return 0, errors.Computation("direct sample size",
			fmt.Errorf("absolute effect %g is zero or undefined", absolute))
	}
	treatment := baseline + absolute

	var zAlpha float64
	switch hypothesis {
	case experiment.TwoSidedHypothesis:
		zAlpha = distributions.NormalQuantile(1 - alpha/2)
	case experiment.OneSidedHypothesis:
		zAlpha = distributions.NormalQuantile(1 - alpha)
	default:
		return 0, errors.UnsupportedValue("hypothesis_type", hypothesis.String(), "two-sided", "one-sided")
	}
	zBeta := distributions.NormalQuantile(power)

	se0 := math.Sqrt(2 * baseline * (1 - baseline))
	se1 := math.Sqrt(baseline*(1-baseline) + treatment*(1-treatment))

	n := math.Pow((zAlpha*se0+zBeta*se1)/absolute, 2)
	if math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt32 {
		return 0, errors.Computation("direct sample size",
			fmt.Errorf("baseline %g with relative effect %g gives no finite sample size", baseline, mde))
	}
	return int(math.Ceil(n)), nil
}
