package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"goabtest/domain/experiment"
	"goabtest/internal/errors"
)

func proportionInput(cs, cn, ts, tn int, alt experiment.Alternative) ProportionInput {
	return ProportionInput{
		ControlSuccesses:   cs,
		ControlSize:        cn,
		TreatmentSuccesses: ts,
		TreatmentSize:      tn,
		ConfidenceLevel:    DefaultConfidenceLevel,
		Alternative:        alt,
	}
}

func TestProportionTestTwoSided(t *testing.T) {
	res, err := ProportionTest(proportionInput(100, 1000, 130, 1000, experiment.TwoSided))
	require.NoError(t, err)

	assert.InDelta(t, 2.102740605622114, res.Statistic, 1e-9)
	assert.InDelta(t, 0.03548845046647475, res.PValue, 1e-9)
	assert.InDelta(t, 0.10, res.ControlMetric, 1e-15)
	assert.InDelta(t, 0.13, res.TreatmentMetric, 1e-15)
	assert.InDelta(t, 0.03, res.Difference, 1e-12)
	assert.InDelta(t, 30.0, res.RelativeDifference, 1e-9)
	assert.InDelta(t, 0.0020679344393763725, res.ConfidenceInterval.Lower, 1e-9)
	assert.InDelta(t, 0.05793206556062362, res.ConfidenceInterval.Upper, 1e-9)
	assert.True(t, res.Significant)
	assert.Equal(t, experiment.ProportionZTest, res.Method)
	assert.InDelta(t, 0.05, res.Alpha, 1e-12)
}

func TestProportionTestOneSided(t *testing.T) {
	larger, err := ProportionTest(proportionInput(100, 1000, 130, 1000, experiment.Larger))
	require.NoError(t, err)
	smaller, err := ProportionTest(proportionInput(100, 1000, 130, 1000, experiment.Smaller))
	require.NoError(t, err)
	two, err := ProportionTest(proportionInput(100, 1000, 130, 1000, experiment.TwoSided))
	require.NoError(t, err)

	assert.InDelta(t, 0.017744225233237376, larger.PValue, 1e-9)
	assert.InDelta(t, 0.9822557747667626, smaller.PValue, 1e-9)
	assert.InDelta(t, 1.0, larger.PValue+smaller.PValue, 1e-12)
	assert.False(t, smaller.Significant)

	// the interval ignores the alternative
	assert.Equal(t, two.ConfidenceInterval, larger.ConfidenceInterval)
	assert.Equal(t, two.ConfidenceInterval, smaller.ConfidenceInterval)
}

func TestProportionTestTwoSidedSymmetry(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cn := rapid.IntRange(1, 100000).Draw(rt, "control_size")
		tn := rapid.IntRange(1, 100000).Draw(rt, "treatment_size")
		cs := rapid.IntRange(0, cn).Draw(rt, "control_successes")
		ts := rapid.IntRange(0, tn).Draw(rt, "treatment_successes")

		forward, err := ProportionTest(proportionInput(cs, cn, ts, tn, experiment.TwoSided))
		require.NoError(rt, err)
		swapped, err := ProportionTest(proportionInput(ts, tn, cs, cn, experiment.TwoSided))
		require.NoError(rt, err)

		if math.IsNaN(forward.PValue) {
			assert.True(rt, math.IsNaN(swapped.PValue))
			return
		}
		assert.InDelta(rt, forward.PValue, swapped.PValue, 1e-12)
	})
}

func TestProportionTestSignificanceConsistency(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cn := rapid.IntRange(1, 5000).Draw(rt, "control_size")
		tn := rapid.IntRange(1, 5000).Draw(rt, "treatment_size")
		in := proportionInput(
			rapid.IntRange(0, cn).Draw(rt, "control_successes"), cn,
			rapid.IntRange(0, tn).Draw(rt, "treatment_successes"), tn,
			experiment.Alternative(rapid.IntRange(0, 2).Draw(rt, "alternative")),
		)
		in.ConfidenceLevel = rapid.Float64Range(0.5, 0.999).Draw(rt, "confidence")

		res, err := ProportionTest(in)
		require.NoError(rt, err)
		assert.Equal(rt, res.PValue < res.Alpha, res.Significant)
		assert.Equal(rt, res.Significant, IsSignificant(res, res.Alpha))
	})
}

func TestProportionTestEmptyGroup(t *testing.T) {
	_, err := ProportionTest(proportionInput(0, 0, 10, 100, experiment.TwoSided))
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyGroup, errors.GetCode(err))
	assert.Contains(t, err.Error(), "control")

	_, err = ProportionTest(proportionInput(10, 100, 0, 0, experiment.TwoSided))
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyGroup, errors.GetCode(err))
	assert.Contains(t, err.Error(), "treatment")
}

func TestProportionTestInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   ProportionInput
	}{
		{"successes above size", proportionInput(11, 10, 1, 10, experiment.TwoSided)},
		{"negative successes", proportionInput(-1, 10, 1, 10, experiment.TwoSided)},
		{"negative size", proportionInput(0, -10, 1, 10, experiment.TwoSided)},
		{"unknown alternative", proportionInput(1, 10, 1, 10, experiment.Alternative(9))},
		{"confidence of one", func() ProportionInput {
			in := proportionInput(1, 10, 1, 10, experiment.TwoSided)
			in.ConfidenceLevel = 1
			return in
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProportionTest(tt.in)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		})
	}
}

func TestProportionTestDegenerate(t *testing.T) {
	res, err := ProportionTest(proportionInput(0, 100, 0, 200, experiment.TwoSided))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.Statistic))
	assert.True(t, math.IsNaN(res.PValue))
	assert.False(t, res.Significant)
	assert.True(t, math.IsInf(res.RelativeDifference, 1))
}

func TestProportionTestZeroControlRate(t *testing.T) {
	res, err := ProportionTest(proportionInput(0, 100, 5, 100, experiment.TwoSided))
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.RelativeDifference, 1))
	assert.False(t, math.IsNaN(res.PValue))
}
