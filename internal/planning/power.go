package planning

import (
	"context"
	"math"

	"goabtest/domain/experiment"
	"goabtest/internal/distributions"
	"goabtest/internal/errors"
)

// Power is the probability that a two-sided, two-sample t test with
// nPerGroup observations per arm rejects at alpha when the true standardized
// effect is effect. Sign of effect does not matter.
func Power(effect, nPerGroup, alpha float64) float64 {
	if nPerGroup < minGroupSize {
		return math.NaN()
	}
	df := 2*nPerGroup - 2
	nc := effect * math.Sqrt(nPerGroup/2)
	crit := distributions.TQuantile(1-alpha/2, df)

	upper := 1 - distributions.NoncentralTCDF(crit, df, nc)
	lower := distributions.NoncentralTCDF(-crit, df, nc)
	return upper + lower
}

// PowerSweep is the inclusive grid of per-group sample sizes a power curve spans
type PowerSweep struct {
	Min  int `json:"min_samples"`
	Max  int `json:"max_samples"`
	Step int `json:"step"`
}

// DefaultPowerSweep covers 1,000 to 30,000 per group in steps of 1,000
func DefaultPowerSweep() PowerSweep {
	return PowerSweep{Min: 1000, Max: 30000, Step: 1000}
}

// Validate rejects empty or degenerate grids
func (s PowerSweep) Validate() error {
	if s.Step <= 0 {
		return errors.Newf(errors.CodeInvalidInput, "step must be positive, got %d", s.Step)
	}
	if s.Min < minGroupSize {
		return errors.Newf(errors.CodeInvalidInput, "min_samples must be at least %d, got %d", minGroupSize, s.Min)
	}
	if s.Max < s.Min {
		return errors.Newf(errors.CodeInvalidInput, "max_samples %d is below min_samples %d", s.Max, s.Min)
	}
	return nil
}

// Sizes lists the grid in ascending order; Max is included when it lies on the grid
func (s PowerSweep) Sizes() []int {
	sizes := make([]int, 0, (s.Max-s.Min)/s.Step+1)
	for n := s.Min; n <= s.Max; n += s.Step {
		sizes = append(sizes, n)
	}
	return sizes
}

// PowerCurve evaluates Power across the sweep using the default sweeper
func PowerCurve(ctx context.Context, params experiment.ParameterSet, sweep PowerSweep) (experiment.PowerCurve, error) {
	return DefaultSweeper().PowerCurve(ctx, params, sweep)
}

// PowerCurve evaluates Power for the effect size implied by params at every
// grid point. Points are computed concurrently; output order is the grid order.
func (s *Sweeper) PowerCurve(ctx context.Context, params experiment.ParameterSet, sweep PowerSweep) (experiment.PowerCurve, error) {
	if err := sweep.Validate(); err != nil {
		return experiment.PowerCurve{}, err
	}
	effect, err := EffectSize(params.BaselineRate, params.TreatmentRate())
	if err != nil {
		return experiment.PowerCurve{}, err
	}

	sizes := sweep.Sizes()
	values := make([]float64, len(sizes))

	err = s.each(ctx, len(sizes), func(i int) error {
		values[i] = Power(effect, float64(sizes[i]), params.Alpha)
		return nil
	})
	if err != nil {
		return experiment.PowerCurve{}, errors.Wrap(err, "power curve interrupted")
	}

	return experiment.PowerCurve{
		EffectSize:  effect,
		SampleSizes: sizes,
		PowerValues: values,
	}, nil
}
