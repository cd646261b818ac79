package planning

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"goabtest/domain/experiment"
	"goabtest/internal/errors"
)

// Sweeper evaluates planning grids concurrently with at most Workers goroutines
type Sweeper struct {
	Workers int
}

// NewSweeper bounds sweeps to workers goroutines; non-positive means GOMAXPROCS
func NewSweeper(workers int) *Sweeper {
	return &Sweeper{Workers: workers}
}

// DefaultSweeper uses one worker per available CPU
func DefaultSweeper() *Sweeper {
	return &Sweeper{}
}

func (s *Sweeper) workers() int {
	if s == nil || s.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return s.Workers
}

// DefaultTrafficAllocations is 10% to 100% in five point steps
func DefaultTrafficAllocations() []float64 {
	allocations := make([]float64, 0, 19)
	for pct := 10; pct <= 100; pct += 5 {
		allocations = append(allocations, float64(pct)/100)
	}
	return allocations
}

// DurationVsTraffic runs the default sweeper
func DurationVsTraffic(ctx context.Context, in DurationInput, allocations []float64) ([]experiment.TrafficPoint, error) {
	return DefaultSweeper().DurationVsTraffic(ctx, in, allocations)
}

// DurationVsMDE runs the default sweeper
func DurationVsMDE(ctx context.Context, in DurationInput, mdes []float64) ([]experiment.MDEPoint, error) {
	return DefaultSweeper().DurationVsMDE(ctx, in, mdes)
}

// DurationVsTraffic re-estimates the duration for each traffic allocation,
// holding everything else in fixed. A nil slice uses DefaultTrafficAllocations.
// Allocations are reported as percentages.
func (s *Sweeper) DurationVsTraffic(ctx context.Context, in DurationInput, allocations []float64) ([]experiment.TrafficPoint, error) {
	if allocations == nil {
		allocations = DefaultTrafficAllocations()
	}

	points := make([]experiment.TrafficPoint, len(allocations))
	err := s.each(ctx, len(allocations), func(i int) error {
		scenario := in
		scenario.TrafficAllocation = allocations[i]
		res, err := EstimateDuration(scenario)
		if err != nil {
			return errors.Wrapf(err, "traffic allocation %g", allocations[i])
		}
		points[i] = experiment.TrafficPoint{
			TrafficAllocation:      allocations[i] * 100,
			DaysRequired:           res.DaysRequired,
			DailyExperimentTraffic: res.DailyExperimentTraffic,
			TotalSampleSize:        res.TotalSampleSize,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// DurationVsMDE re-estimates the duration for each relative MDE, holding
// everything else in fixed. MDEs are reported as percentages.
func (s *Sweeper) DurationVsMDE(ctx context.Context, in DurationInput, mdes []float64) ([]experiment.MDEPoint, error) {
	if len(mdes) == 0 {
		return nil, errors.InvalidInput("mde range must not be empty")
	}

	points := make([]experiment.MDEPoint, len(mdes))
	err := s.each(ctx, len(mdes), func(i int) error {
		scenario := in
		scenario.MinimumDetectableEffect = mdes[i]
		res, err := EstimateDuration(scenario)
		if err != nil {
			return errors.Wrapf(err, "minimum detectable effect %g", mdes[i])
		}
		points[i] = experiment.MDEPoint{
			MinimumDetectableEffect: mdes[i] * 100,
			DaysRequired:            res.DaysRequired,
			TotalSampleSize:         res.TotalSampleSize,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// each runs fn for every index in [0, n) under the worker limit, stopping at the first error
func (s *Sweeper) each(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}
