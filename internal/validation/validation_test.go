package validation

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"goabtest/domain/experiment"
	"goabtest/internal/errors"
)

func bernoulli(ones, n int) []float64 {
	xs := make([]float64, n)
	for i := 0; i < ones; i++ {
		xs[i] = 1
	}
	return xs
}

func TestSRMNullCase(t *testing.T) {
	res, err := SampleRatioMismatch(500, 500, 0.5, 0.05)
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Equal(t, 1.0, res.PValue)
	assert.Equal(t, 0.0, res.Statistic)
	assert.Empty(t, res.WarningMessage)
	assert.Equal(t, experiment.SampleRatioMismatch, res.TestType)
}

func TestSRMDetection(t *testing.T) {
	res, err := SampleRatioMismatch(400, 600, 0.5, 0.05)
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.InDelta(t, 40.0, res.Statistic, 1e-9)
	assert.Less(t, res.PValue, 1e-9)
	assert.Contains(t, res.WarningMessage, "0.60")
	assert.Contains(t, res.WarningMessage, "0.50")
	assert.Contains(t, res.WarningMessage, "400")
	assert.Contains(t, res.WarningMessage, "600")
}

func TestSRMUnevenDesign(t *testing.T) {
	res, err := SampleRatioMismatch(700, 300, 0.3, 0.05)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.InDelta(t, 0.0, res.Statistic, 1e-9)
}

func TestSRMGuards(t *testing.T) {
	_, err := SampleRatioMismatch(0, 0, 0.5, 0.05)
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyGroup, errors.GetCode(err))

	for _, tc := range []struct {
		c, t         int
		ratio, alpha float64
	}{
		{-1, 10, 0.5, 0.05},
		{10, 10, 0, 0.05},
		{10, 10, 1, 0.05},
		{10, 10, 0.5, 0},
	} {
		_, err := SampleRatioMismatch(tc.c, tc.t, tc.ratio, tc.alpha)
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	}
}

func TestSRMPassedMatchesPValue(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := rapid.IntRange(0, 100000).Draw(rt, "control")
		tr := rapid.IntRange(1, 100000).Draw(rt, "treatment")
		alpha := rapid.Float64Range(0.001, 0.2).Draw(rt, "alpha")
		ratio := rapid.Float64Range(0.05, 0.95).Draw(rt, "ratio")

		res, err := SampleRatioMismatch(c, tr, ratio, alpha)
		require.NoError(rt, err)
		assert.Equal(rt, res.PValue >= alpha, res.Passed)
		assert.Equal(rt, res.Passed, res.WarningMessage == "")
	})
}

func TestAATestBinary(t *testing.T) {
	res, err := AATest(bernoulli(100, 1000), bernoulli(104, 1000), 0.05, experiment.Binary)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, experiment.AABinary, res.TestType)
	assert.Empty(t, res.WarningMessage)

	res, err = AATest(bernoulli(100, 1000), bernoulli(150, 1000), 0.05, experiment.Binary)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.WarningMessage, "control: 0.1000")
	assert.Contains(t, res.WarningMessage, "treatment: 0.1500")
	assert.Contains(t, res.WarningMessage, "p-value")
}

func TestAATestContinuous(t *testing.T) {
	control := []float64{10.1, 9.8, 10.4, 10.0, 9.7, 10.2, 9.9, 10.3}
	treatment := []float64{10.6, 10.9, 10.2, 11.1, 10.4, 10.8, 10.5}

	res, err := AATest(control, treatment, 0.05, experiment.Continuous)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, experiment.AAContinuous, res.TestType)
	assert.InDelta(t, 0.0017225742514010989, res.PValue, 1e-8)
	assert.Contains(t, res.WarningMessage, "control mean: 10.0500")
	assert.Contains(t, res.WarningMessage, "treatment mean: 10.6429")

	res, err = AATest(control, control, 0.05, experiment.Continuous)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.InDelta(t, 1.0, res.PValue, 1e-12)
}

func TestAATestGuards(t *testing.T) {
	_, err := AATest(nil, bernoulli(1, 10), 0.05, experiment.Binary)
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyGroup, errors.GetCode(err))
	assert.Contains(t, err.Error(), "control")

	_, err = AATest(bernoulli(1, 10), []float64{}, 0.05, experiment.Continuous)
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyGroup, errors.GetCode(err))

	_, err = AATest(bernoulli(1, 10), bernoulli(1, 10), 0.05, experiment.MetricType(5))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "'binary', 'continuous'")
}

func TestAATestSymmetric(t *testing.T) {
	a, b := bernoulli(120, 1000), bernoulli(95, 900)
	fwd, err := AATest(a, b, 0.05, experiment.Binary)
	require.NoError(t, err)
	back, err := AATest(b, a, 0.05, experiment.Binary)
	require.NoError(t, err)
	assert.InDelta(t, fwd.PValue, back.PValue, 1e-12)
	assert.False(t, math.IsNaN(fwd.PValue))
}

type slowCheck struct {
	name    string
	cost    int64
	running *atomic.Int64
	peak    *atomic.Int64
}

func (c slowCheck) Name() string { return c.name }
func (c slowCheck) Cost() int64  { return c.cost }

func (c slowCheck) Run(context.Context) (experiment.ValidationResult, error) {
	now := c.running.Add(c.cost)
	for {
		prev := c.peak.Load()
		if now <= prev || c.peak.CompareAndSwap(prev, now) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	c.running.Add(-c.cost)
	return experiment.ValidationResult{TestType: experiment.ValidationType(c.name), Passed: true}, nil
}

func TestBatteryRespectsCapacity(t *testing.T) {
	var running, peak atomic.Int64
	checks := make([]Check, 8)
	for i := range checks {
		checks[i] = slowCheck{name: string(rune('a' + i)), cost: 2, running: &running, peak: &peak}
	}

	outcomes := NewBattery(4).Run(context.Background(), checks)

	require.Len(t, outcomes, 8)
	for i, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, string(rune('a'+i)), o.Name, "outcomes keep request order")
	}
	assert.LessOrEqual(t, peak.Load(), int64(4))
}

func TestBatteryRunsRealChecks(t *testing.T) {
	checks := []Check{
		SRMCheck{ControlSize: 400, TreatmentSize: 600, ExpectedRatio: 0.5, Alpha: 0.05},
		AACheck{Control: bernoulli(100, 1000), Treatment: bernoulli(101, 1000), Alpha: 0.05, Metric: experiment.Binary},
	}

	results, err := Results(NewBattery(DefaultCapacity).Run(context.Background(), checks))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, experiment.SampleRatioMismatch, results[0].TestType)
	assert.False(t, results[0].Passed)
	assert.Equal(t, experiment.AABinary, results[1].TestType)
	assert.True(t, results[1].Passed)
}

func TestBatteryReportsCheckErrors(t *testing.T) {
	checks := []Check{
		SRMCheck{ControlSize: 0, TreatmentSize: 0, ExpectedRatio: 0.5, Alpha: 0.05},
	}
	outcomes := NewBattery(1).Run(context.Background(), checks)
	require.Error(t, outcomes[0].Err)

	_, err := Results(outcomes)
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyGroup, errors.GetCode(err))
}
