package validation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"goabtest/domain/experiment"
	"goabtest/internal/errors"
)

// Check is one diagnostic the battery can schedule
type Check interface {
	Name() string
	// Cost is the share of battery capacity the check holds while it runs
	Cost() int64
	Run(ctx context.Context) (experiment.ValidationResult, error)
}

// SRMCheck schedules SampleRatioMismatch
type SRMCheck struct {
	ControlSize   int
	TreatmentSize int
	ExpectedRatio float64
	Alpha         float64
}

func (c SRMCheck) Name() string { return string(experiment.SampleRatioMismatch) }
func (c SRMCheck) Cost() int64  { return 1 }

func (c SRMCheck) Run(context.Context) (experiment.ValidationResult, error) {
	return SampleRatioMismatch(c.ControlSize, c.TreatmentSize, c.ExpectedRatio, c.Alpha)
}

// AACheck schedules AATest
type AACheck struct {
	Control   []float64
	Treatment []float64
	Alpha     float64
	Metric    experiment.MetricType
}

func (c AACheck) Name() string {
	if c.Metric == experiment.Continuous {
		return string(experiment.AAContinuous)
	}
	return string(experiment.AABinary)
}

// Cost grows with the number of observations the check has to scan
func (c AACheck) Cost() int64 {
	if len(c.Control)+len(c.Treatment) > 100000 {
		return 3
	}
	return 2
}

func (c AACheck) Run(context.Context) (experiment.ValidationResult, error) {
	return AATest(c.Control, c.Treatment, c.Alpha, c.Metric)
}

// DefaultCapacity lets a handful of checks run side by side
const DefaultCapacity = 4

// Outcome is the result of one scheduled check
type Outcome struct {
	Name     string
	Result   experiment.ValidationResult
	Err      error
	Duration time.Duration
}

// Battery runs diagnostics concurrently under a weighted capacity limit
type Battery struct {
	sem        *semaphore.Weighted
	capacity   int64
	maxTimeout time.Duration
}

// NewBattery creates a battery with the given total capacity
func NewBattery(capacity int64) *Battery {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Battery{
		sem:        semaphore.NewWeighted(capacity),
		capacity:   capacity,
		maxTimeout: time.Minute, // maximum time to wait for capacity
	}
}

type batteryJob struct {
	index   int
	outcome Outcome
}

// Run executes every check and returns outcomes in request order.
// A check that fails or cannot get capacity carries its error in Outcome.Err.
func (b *Battery) Run(ctx context.Context, checks []Check) []Outcome {
	outcomes := make([]Outcome, len(checks))
	jobs := make(chan batteryJob, len(checks))

	for i, check := range checks {
		go func() {
			cost := min(check.Cost(), b.capacity)
			if cost <= 0 {
				cost = 1
			}

			acquireCtx, cancel := context.WithTimeout(ctx, b.maxTimeout)
			defer cancel()

			if err := b.sem.Acquire(acquireCtx, cost); err != nil {
				jobs <- batteryJob{index: i, outcome: Outcome{
					Name: check.Name(),
					Err:  errors.Wrap(err, fmt.Sprintf("capacity unavailable for %s", check.Name())),
				}}
				return
			}

			start := time.Now()
			result, err := check.Run(ctx)
			b.sem.Release(cost)

			jobs <- batteryJob{index: i, outcome: Outcome{
				Name:     check.Name(),
				Result:   result,
				Err:      err,
				Duration: time.Since(start),
			}}
		}()
	}

	for range checks {
		job := <-jobs
		outcomes[job.index] = job.outcome
	}
	return outcomes
}

// Results unwraps outcomes, failing on the first check that errored
func Results(outcomes []Outcome) ([]experiment.ValidationResult, error) {
	results := make([]experiment.ValidationResult, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			return nil, errors.Wrapf(o.Err, "%s check failed", o.Name)
		}
		results[i] = o.Result
	}
	return results, nil
}
