package inference

import (
	"math"

	"github.com/montanaflynn/stats"

	"goabtest/domain/experiment"
	"goabtest/internal/distributions"
	"goabtest/internal/errors"
)

// MeanTestOptions selects the confidence level, direction and variance model
type MeanTestOptions struct {
	ConfidenceLevel float64                `json:"confidence_level"`
	Alternative     experiment.Alternative `json:"alternative"`
	EqualVar        bool                   `json:"equal_var"`
}

// DefaultMeanTestOptions is a two-sided Welch test at 95%
func DefaultMeanTestOptions() MeanTestOptions {
	return MeanTestOptions{ConfidenceLevel: DefaultConfidenceLevel, Alternative: experiment.TwoSided}
}

// SampleMoments are the per-arm quantities a two-sample t test needs
type SampleMoments struct {
	N        float64
	Mean     float64
	Variance float64 // unbiased, n-1 denominator
}

// Moments computes size, mean and sample variance of one arm
func Moments(group string, xs []float64) (SampleMoments, error) {
	if len(xs) == 0 {
		return SampleMoments{}, errors.EmptyGroup(group)
	}
	if len(xs) < 2 {
		return SampleMoments{}, errors.Newf(errors.CodeInvalidInput, "%s group needs at least 2 observations, got %d", group, len(xs))
	}
	mean, err := stats.Mean(xs)
	if err != nil {
		return SampleMoments{}, errors.Computation(group+" mean", err)
	}
	variance, err := stats.SampleVariance(xs)
	if err != nil {
		return SampleMoments{}, errors.Computation(group+" variance", err)
	}
	return SampleMoments{N: float64(len(xs)), Mean: mean, Variance: variance}, nil
}

// StandardError returns the standard error of the mean difference and its
// degrees of freedom: pooled when equalVar, Welch-Satterthwaite otherwise.
func StandardError(control, treatment SampleMoments, equalVar bool) (se, df float64) {
	if equalVar {
		df = control.N + treatment.N - 2
		pooled := ((treatment.N-1)*treatment.Variance + (control.N-1)*control.Variance) / df
		return math.Sqrt(pooled * (1/treatment.N + 1/control.N)), df
	}
	vt := treatment.Variance / treatment.N
	vc := control.Variance / control.N
	se = math.Sqrt(vt + vc)
	df = (vt + vc) * (vt + vc) / (vt*vt/(treatment.N-1) + vc*vc/(control.N-1))
	return se, df
}

// MeanTest compares means with a two-sample t test on treatment minus control.
// The interval shares the test's standard error and degrees of freedom and is
// always two-sided. Two constant arms give a NaN statistic and p-value.
func MeanTest(control, treatment []float64, opts MeanTestOptions) (experiment.TestResult, error) {
	if err := validateConfidence(opts.ConfidenceLevel); err != nil {
		return experiment.TestResult{}, err
	}
	c, err := Moments("control", control)
	if err != nil {
		return experiment.TestResult{}, err
	}
	t, err := Moments("treatment", treatment)
	if err != nil {
		return experiment.TestResult{}, err
	}

	se, df := StandardError(c, t, opts.EqualVar)
	diff := t.Mean - c.Mean

	stat := math.NaN()
	if se > 0 {
		stat = diff / se
	}

	p, err := studentPValue(stat, df, opts.Alternative)
	if err != nil {
		return experiment.TestResult{}, err
	}

	alpha := 1 - opts.ConfidenceLevel
	ci := experiment.ConfidenceInterval{Lower: diff, Upper: diff}
	if se > 0 {
		margin := distributions.TQuantile(1-alpha/2, df) * se
		ci = experiment.ConfidenceInterval{Lower: diff - margin, Upper: diff + margin}
	}

	return experiment.TestResult{
		PValue:             p,
		Statistic:          stat,
		ControlMetric:      c.Mean,
		TreatmentMetric:    t.Mean,
		Difference:         diff,
		RelativeDifference: relativeDifference(diff, c.Mean),
		ConfidenceInterval: ci,
		Significant:        p < alpha,
		Alpha:              alpha,
		Method:             experiment.MeanTTest,
	}, nil
}

// studentPValue maps larger/smaller onto the greater/less tails of Student's t
func studentPValue(stat, df float64, alt experiment.Alternative) (float64, error) {
	switch alt {
	case experiment.TwoSided:
		return TwoSidedStudentPValue(stat, df), nil
	case experiment.Larger:
		return distributions.TSurvival(stat, df), nil
	case experiment.Smaller:
		return distributions.TCDF(stat, df), nil
	default:
		return math.NaN(), errors.UnsupportedValue("alternative", alt.String(), "two-sided", "larger", "smaller")
	}
}
