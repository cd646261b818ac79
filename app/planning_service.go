package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"goabtest/domain/core"
	"goabtest/domain/experiment"
	"goabtest/internal/errors"
	"goabtest/internal/metrics"
	"goabtest/internal/planning"
	"goabtest/internal/report"
	"goabtest/ports"
)

// PlanningService sizes an experiment and stores the plan as a run
type PlanningService struct {
	runs         ports.RunRepository
	sweeper      *planning.Sweeper
	metrics      *metrics.Recorder
	dailyTraffic float64
}

// PlanRequest defines the inputs for a complete experiment plan.
// Zero values select the defaults: the service's daily traffic, full
// allocation, an even split and the default power sweep.
type PlanRequest struct {
	Title             string                    `json:"title"`
	Parameters        experiment.ParameterSet   `json:"parameters"`
	DailyTraffic      float64                   `json:"daily_traffic"`
	TrafficAllocation float64                   `json:"traffic_allocation"`
	ControlRatio      float64                   `json:"control_ratio"`
	Hypothesis        experiment.HypothesisType `json:"hypothesis_type"`
	PowerSweep        *planning.PowerSweep      `json:"power_sweep,omitempty"`
}

// PlanResult contains the complete output of a plan
type PlanResult struct {
	RunID      core.RunID                  `json:"run_id"`
	Parameters experiment.ParameterSummary `json:"parameters"`
	SampleSize experiment.SampleSizeResult `json:"sample_size"`
	PowerCurve experiment.PowerCurve       `json:"power_curve"`
	Duration   experiment.DurationResult   `json:"duration"`
	Report     string                      `json:"report"`
}

// NewPlanningService creates a planning service
func NewPlanningService(runs ports.RunRepository, sweeper *planning.Sweeper, recorder *metrics.Recorder, dailyTraffic float64) *PlanningService {
	if sweeper == nil {
		sweeper = planning.DefaultSweeper()
	}
	return &PlanningService{
		runs:         runs,
		sweeper:      sweeper,
		metrics:      recorder,
		dailyTraffic: dailyTraffic,
	}
}

// Sweeper exposes the bounded sweeper for the standalone sweep endpoints
func (s *PlanningService) Sweeper() *planning.Sweeper {
	return s.sweeper
}

// DurationInput turns a request into estimator input, applying defaults
func (s *PlanningService) DurationInput(req PlanRequest) planning.DurationInput {
	daily := req.DailyTraffic
	if daily == 0 {
		daily = s.dailyTraffic
	}
	in := planning.NewDurationInput(req.Parameters.BaselineRate, req.Parameters.MDE, daily)
	in.Power = req.Parameters.Power
	in.SignificanceLevel = req.Parameters.Alpha
	in.Hypothesis = req.Hypothesis
	if req.TrafficAllocation != 0 {
		in.TrafficAllocation = req.TrafficAllocation
	}
	if req.ControlRatio != 0 {
		in.ControlRatio = req.ControlRatio
	}
	return in
}

// Plan validates the parameters, computes sample size, power curve and
// duration, renders the report and saves a plan run
func (s *PlanningService) Plan(ctx context.Context, req PlanRequest) (result *PlanResult, err error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx).With().Str("component", "planning").Logger()
	defer func() { s.metrics.PlanCompleted(err) }()

	if err := errors.Invalid(req.Parameters.Validate()); err != nil {
		return nil, err
	}

	sampleSize, err := planning.SampleSize(req.Parameters)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute sample size")
	}

	sweep := planning.DefaultPowerSweep()
	if req.PowerSweep != nil {
		sweep = *req.PowerSweep
	}
	curve, err := s.sweeper.PowerCurve(ctx, req.Parameters, sweep)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute power curve")
	}

	duration, err := planning.EstimateDuration(s.DurationInput(req))
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate duration")
	}

	result = &PlanResult{
		Parameters: req.Parameters.Summary(),
		SampleSize: sampleSize,
		PowerCurve: curve,
		Duration:   duration,
	}
	result.Report = report.PlanMarkdown(report.Plan{
		Title:      req.Title,
		Parameters: result.Parameters,
		SampleSize: sampleSize,
		Duration:   duration,
		PowerCurve: &curve,
	})

	result.RunID = core.NewRunID()
	run, err := experiment.NewRun(experiment.RunKindPlan, req.Parameters, result)
	if err != nil {
		return nil, err
	}
	run.ID = result.RunID
	run.Report = result.Report

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to save plan")
	}

	logger.Info().
		Str("run_id", run.ID.String()).
		Int("sample_size_per_group", sampleSize.SampleSizePerGroup).
		Int("total_sample_size", duration.TotalSampleSize).
		Dur("elapsed", time.Since(start)).
		Msg("plan computed")

	return result, nil
}
