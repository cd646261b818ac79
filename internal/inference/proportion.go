// Package inference runs the post-experiment hypothesis tests: a pooled
// two-proportion z test for conversion metrics and a Student or Welch t test
// for continuous metrics. Both produce an experiment.TestResult whose
// confidence interval is always two-sided.
package inference

import (
	"math"

	"goabtest/domain/experiment"
	"goabtest/internal/distributions"
	"goabtest/internal/errors"
)

// DefaultConfidenceLevel is used when a request leaves the level unset
const DefaultConfidenceLevel = 0.95

// ProportionInput carries the success counts and sizes of both arms
type ProportionInput struct {
	ControlSuccesses   int                    `json:"control_successes"`
	ControlSize        int                    `json:"control_size"`
	TreatmentSuccesses int                    `json:"treatment_successes"`
	TreatmentSize      int                    `json:"treatment_size"`
	ConfidenceLevel    float64                `json:"confidence_level"`
	Alternative        experiment.Alternative `json:"alternative"`
}

func (in ProportionInput) validate() error {
	if in.ControlSize == 0 {
		return errors.EmptyGroup("control")
	}
	if in.TreatmentSize == 0 {
		return errors.EmptyGroup("treatment")
	}
	if in.ControlSize < 0 || in.TreatmentSize < 0 {
		return errors.Newf(errors.CodeInvalidInput, "group sizes must be positive, got %d and %d", in.ControlSize, in.TreatmentSize)
	}
	if in.ControlSuccesses < 0 || in.ControlSuccesses > in.ControlSize {
		return errors.Newf(errors.CodeInvalidInput, "control successes %d must lie within [0, %d]", in.ControlSuccesses, in.ControlSize)
	}
	if in.TreatmentSuccesses < 0 || in.TreatmentSuccesses > in.TreatmentSize {
		return errors.Newf(errors.CodeInvalidInput, "treatment successes %d must lie within [0, %d]", in.TreatmentSuccesses, in.TreatmentSize)
	}
	return validateConfidence(in.ConfidenceLevel)
}

// ProportionTest compares conversion rates with a pooled-variance z test.
// The interval uses the unpooled standard error and the two-sided critical
// value whatever the alternative. When both arms convert at exactly 0 or 1
// the pooled standard error vanishes and the statistic and p-value are NaN.
func ProportionTest(in ProportionInput) (experiment.TestResult, error) {
	if err := in.validate(); err != nil {
		return experiment.TestResult{}, err
	}

	nc, nt := float64(in.ControlSize), float64(in.TreatmentSize)
	pc := float64(in.ControlSuccesses) / nc
	pt := float64(in.TreatmentSuccesses) / nt

	diff := pt - pc
	z := PooledZ(float64(in.ControlSuccesses), nc, float64(in.TreatmentSuccesses), nt)

	p, err := normalPValue(z, in.Alternative)
	if err != nil {
		return experiment.TestResult{}, err
	}

	alpha := 1 - in.ConfidenceLevel
	margin := distributions.TwoSidedCritical(alpha) * math.Sqrt(pc*(1-pc)/nc+pt*(1-pt)/nt)

	return experiment.TestResult{
		PValue:             p,
		Statistic:          z,
		ControlMetric:      pc,
		TreatmentMetric:    pt,
		Difference:         diff,
		RelativeDifference: relativeDifference(diff, pc),
		ConfidenceInterval: experiment.ConfidenceInterval{Lower: diff - margin, Upper: diff + margin},
		Significant:        p < alpha,
		Alpha:              alpha,
		Method:             experiment.ProportionZTest,
	}, nil
}

// PooledZ is the two-proportion z statistic, treatment minus control, under the
// pooled null standard error. It is NaN when that standard error is zero.
func PooledZ(controlSuccesses, controlSize, treatmentSuccesses, treatmentSize float64) float64 {
	pc := controlSuccesses / controlSize
	pt := treatmentSuccesses / treatmentSize
	pooled := (controlSuccesses + treatmentSuccesses) / (controlSize + treatmentSize)
	se := math.Sqrt(pooled * (1 - pooled) * (1/controlSize + 1/treatmentSize))
	if !(se > 0) {
		return math.NaN()
	}
	return (pt - pc) / se
}

// TwoSidedNormalPValue is 2 * P(Z > |z|)
func TwoSidedNormalPValue(z float64) float64 {
	return 2 * distributions.NormalSurvival(math.Abs(z))
}

// TwoSidedStudentPValue is 2 * P(T > |t|) with df degrees of freedom
func TwoSidedStudentPValue(t, df float64) float64 {
	return 2 * distributions.TSurvival(math.Abs(t), df)
}

func normalPValue(z float64, alt experiment.Alternative) (float64, error) {
	switch alt {
	case experiment.TwoSided:
		return TwoSidedNormalPValue(z), nil
	case experiment.Larger:
		return distributions.NormalSurvival(z), nil
	case experiment.Smaller:
		return distributions.NormalCDF(z), nil
	default:
		return math.NaN(), errors.UnsupportedValue("alternative", alt.String(), "two-sided", "larger", "smaller")
	}
}

// relativeDifference is diff as a percentage of control, +Inf when control is 0
func relativeDifference(diff, control float64) float64 {
	if control == 0 {
		return math.Inf(1)
	}
	return diff / control * 100
}

func validateConfidence(level float64) error {
	if !(level > 0 && level < 1) {
		return errors.Newf(errors.CodeInvalidInput, "confidence level must be between 0 and 1, got %g", level)
	}
	return nil
}
