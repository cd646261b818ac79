package experiment

import (
	"strings"

	"goabtest/internal/errors"
)

// Alternative is the direction of the alternative hypothesis, treatment relative to control
type Alternative int

const (
	TwoSided Alternative = iota
	Larger               // treatment > control
	Smaller              // treatment < control
)

var alternativeNames = []string{"two-sided", "larger", "smaller"}

func (a Alternative) String() string {
	if a < 0 || int(a) >= len(alternativeNames) {
		return "unknown"
	}
	return alternativeNames[a]
}

// ParseAlternative accepts "two-sided", "larger" or "smaller"
func ParseAlternative(s string) (Alternative, error) {
	for i, name := range alternativeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Alternative(i), nil
		}
	}
	return TwoSided, errors.UnsupportedValue("alternative", s, alternativeNames...)
}

func (a Alternative) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Alternative) UnmarshalText(b []byte) error {
	v, err := ParseAlternative(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MetricType selects the AA test flavour
type MetricType int

const (
	Binary MetricType = iota
	Continuous
)

var metricTypeNames = []string{"binary", "continuous"}

func (m MetricType) String() string {
	if m < 0 || int(m) >= len(metricTypeNames) {
		return "unknown"
	}
	return metricTypeNames[m]
}

// ParseMetricType accepts "binary" or "continuous"
func ParseMetricType(s string) (MetricType, error) {
	for i, name := range metricTypeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return MetricType(i), nil
		}
	}
	return Binary, errors.UnsupportedValue("metric_type", s, metricTypeNames...)
}

func (m MetricType) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MetricType) UnmarshalText(b []byte) error {
	v, err := ParseMetricType(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// HypothesisType controls the critical value used when planning sample sizes
type HypothesisType int

const (
	TwoSidedHypothesis HypothesisType = iota
	OneSidedHypothesis
)

var hypothesisTypeNames = []string{"two-sided", "one-sided"}

func (h HypothesisType) String() string {
	if h < 0 || int(h) >= len(hypothesisTypeNames) {
		return "unknown"
	}
	return hypothesisTypeNames[h]
}

// ParseHypothesisType accepts "two-sided" or "one-sided"
func ParseHypothesisType(s string) (HypothesisType, error) {
	for i, name := range hypothesisTypeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return HypothesisType(i), nil
		}
	}
	return TwoSidedHypothesis, errors.UnsupportedValue("hypothesis_type", s, hypothesisTypeNames...)
}

func (h HypothesisType) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *HypothesisType) UnmarshalText(b []byte) error {
	v, err := ParseHypothesisType(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// Method tags which test produced a TestResult
type Method string

const (
	ProportionZTest Method = "proportion_z_test"
	MeanTTest       Method = "mean_t_test"
)

// ValidationType tags which diagnostic produced a ValidationResult
type ValidationType string

const (
	SampleRatioMismatch ValidationType = "Sample Ratio Mismatch"
	AABinary            ValidationType = "AA Test (Binary)"
	AAContinuous        ValidationType = "AA Test (Continuous)"
)
