package validation

import (
	"fmt"

	"goabtest/domain/experiment"
	"goabtest/internal/distributions"
	"goabtest/internal/errors"
)

// DefaultExpectedRatio is an even split
const DefaultExpectedRatio = 0.5

// SampleRatioMismatch runs a one-degree-of-freedom chi-square goodness-of-fit
// test of the observed arm sizes against expectedRatio, the share of traffic
// meant for treatment. Passed holds when p >= alpha.
func SampleRatioMismatch(controlSize, treatmentSize int, expectedRatio, alpha float64) (experiment.ValidationResult, error) {
	if err := validateAlpha(alpha); err != nil {
		return experiment.ValidationResult{}, err
	}
	if !(expectedRatio > 0 && expectedRatio < 1) {
		return experiment.ValidationResult{}, errors.Newf(errors.CodeInvalidInput,
			"expected ratio must be between 0 and 1, got %g", expectedRatio)
	}
	if controlSize < 0 || treatmentSize < 0 {
		return experiment.ValidationResult{}, errors.Newf(errors.CodeInvalidInput,
			"group sizes must not be negative, got %d and %d", controlSize, treatmentSize)
	}
	total := controlSize + treatmentSize
	if total == 0 {
		return experiment.ValidationResult{}, errors.New(errors.CodeEmptyGroup, "control and treatment groups are both empty")
	}

	n := float64(total)
	observed := [2]float64{float64(controlSize), float64(treatmentSize)}
	expected := [2]float64{n * (1 - expectedRatio), n * expectedRatio}

	var chi2 float64
	for i := range observed {
		d := observed[i] - expected[i]
		chi2 += d * d / expected[i]
	}
	p := distributions.ChiSquareSurvival(chi2, 1)

	res := experiment.ValidationResult{
		TestType:  experiment.SampleRatioMismatch,
		PValue:    p,
		Statistic: chi2,
		Alpha:     alpha,
		Passed:    p >= alpha,
	}
	if !res.Passed {
		res.WarningMessage = fmt.Sprintf(
			"Sample Ratio Mismatch detected (p-value = %.4f). Expected ratio: %.2f, Actual ratio: %.2f. Control size: %d, Treatment size: %d.",
			p, expectedRatio, float64(treatmentSize)/n, controlSize, treatmentSize)
	}
	return res, nil
}
