// Package validation certifies that an experiment's randomization behaved:
// AA tests compare two arms that should be indistinguishable, and the sample
// ratio mismatch check compares the observed split with the configured one.
package validation

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"goabtest/domain/experiment"
	"goabtest/internal/errors"
	"goabtest/internal/inference"
)

// AATest checks that two control-like arms do not differ. Binary metrics use
// the pooled two-proportion z test on sums of 0/1 outcomes; continuous metrics
// use Welch's t test. Both are two-sided. Passed holds when p >= alpha.
func AATest(control, treatment []float64, alpha float64, metric experiment.MetricType) (experiment.ValidationResult, error) {
	if err := validateAlpha(alpha); err != nil {
		return experiment.ValidationResult{}, err
	}
	if len(control) == 0 {
		return experiment.ValidationResult{}, errors.EmptyGroup("control")
	}
	if len(treatment) == 0 {
		return experiment.ValidationResult{}, errors.EmptyGroup("treatment")
	}

	switch metric {
	case experiment.Binary:
		return aaBinary(control, treatment, alpha)
	case experiment.Continuous:
		return aaContinuous(control, treatment, alpha)
	default:
		return experiment.ValidationResult{}, errors.UnsupportedValue("metric_type", metric.String(), "binary", "continuous")
	}
}

func aaBinary(control, treatment []float64, alpha float64) (experiment.ValidationResult, error) {
	cs, err := stats.Sum(control)
	if err != nil {
		return experiment.ValidationResult{}, errors.Computation("control sum", err)
	}
	ts, err := stats.Sum(treatment)
	if err != nil {
		return experiment.ValidationResult{}, errors.Computation("treatment sum", err)
	}
	cn, tn := float64(len(control)), float64(len(treatment))

	z := inference.PooledZ(cs, cn, ts, tn)
	p := inference.TwoSidedNormalPValue(z)

	res := experiment.ValidationResult{
		TestType:  experiment.AABinary,
		PValue:    p,
		Statistic: z,
		Alpha:     alpha,
		Passed:    p >= alpha,
	}
	if !res.Passed {
		res.WarningMessage = fmt.Sprintf(
			"AA test failed (p-value = %.4f). There may be an underlying difference between groups (control: %.4f, treatment: %.4f).",
			p, cs/cn, ts/tn)
	}
	return res, nil
}

func aaContinuous(control, treatment []float64, alpha float64) (experiment.ValidationResult, error) {
	c, err := inference.Moments("control", control)
	if err != nil {
		return experiment.ValidationResult{}, err
	}
	t, err := inference.Moments("treatment", treatment)
	if err != nil {
		return experiment.ValidationResult{}, err
	}

	se, df := inference.StandardError(c, t, false)
	stat := (t.Mean - c.Mean) / se
	p := inference.TwoSidedStudentPValue(stat, df)

	res := experiment.ValidationResult{
		TestType:  experiment.AAContinuous,
		PValue:    p,
		Statistic: stat,
		Alpha:     alpha,
		Passed:    p >= alpha,
	}
	if !res.Passed {
		res.WarningMessage = fmt.Sprintf(
			"AA test failed (p-value = %.4f). There may be an underlying difference between groups (control mean: %.4f, treatment mean: %.4f).",
			p, c.Mean, t.Mean)
	}
	return res, nil
}

func validateAlpha(alpha float64) error {
	if !(alpha > 0 && alpha < 1) {
		return errors.Newf(errors.CodeInvalidInput, "alpha must be between 0 and 1, got %g", alpha)
	}
	return nil
}
