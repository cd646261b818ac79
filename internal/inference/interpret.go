package inference

import (
	"fmt"
	"math"

	"goabtest/domain/experiment"
)

// IsSignificant re-derives significance against an arbitrary alpha
func IsSignificant(result experiment.TestResult, alpha float64) bool {
	return result.PValue < alpha
}

// FormatInterval renders ci as "[lower, upper]" with a fixed number of decimals
func FormatInterval(ci experiment.ConfidenceInterval, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("[%.*f, %.*f]", decimals, ci.Lower, decimals, ci.Upper)
}

// IntervalVerdict classifies a confidence interval against zero
type IntervalVerdict string

const (
	IntervalContainsZero IntervalVerdict = "contains_zero"
	IntervalPositive     IntervalVerdict = "positive"
	IntervalNegative     IntervalVerdict = "negative"
)

// Interpretation is the human-readable reading of a TestResult
type Interpretation struct {
	Interval        IntervalVerdict `json:"interval"`
	IntervalSummary string          `json:"interval_summary"`
	Conclusive      bool            `json:"conclusive"`
	Decision        string          `json:"decision"`
	Recommendation  string          `json:"recommendation"`
}

// similarThreshold is the relative difference, in percent, below which an
// inconclusive result is read as the variants performing alike
const similarThreshold = 1.0

// Interpret reads the decision and the interval of a test result
func Interpret(result experiment.TestResult) Interpretation {
	var out Interpretation

	switch ci := result.ConfidenceInterval; {
	case ci.Contains(0):
		out.Interval = IntervalContainsZero
		out.IntervalSummary = "The confidence interval contains zero, suggesting no significant effect."
	case ci.Lower > 0:
		out.Interval = IntervalPositive
		out.IntervalSummary = "The confidence interval is entirely positive, suggesting a positive effect."
	default:
		out.Interval = IntervalNegative
		out.IntervalSummary = "The confidence interval is entirely negative, suggesting a negative effect."
	}

	out.Conclusive = result.Significant
	switch {
	case result.Significant && result.Difference > 0:
		out.Decision = "The test is conclusive. Treatment outperforms Control."
		out.Recommendation = "We recommend implementing the Treatment variant."
	case result.Significant:
		out.Decision = "The test is conclusive. Treatment underperforms Control."
		out.Recommendation = "We recommend keeping the Control variant."
	default:
		out.Decision = "The test is inconclusive. No significant difference detected."
		switch {
		case math.Abs(result.RelativeDifference) < similarThreshold:
			out.Recommendation = "The variants perform similarly. Choose based on other factors."
		case result.Difference > 0:
			out.Recommendation = "Treatment shows a positive trend, but is not statistically significant. Consider extending the test."
		default:
			out.Recommendation = "Treatment shows a negative trend, but is not statistically significant. Consider keeping Control."
		}
	}
	return out
}
