package main

import (
	"github.com/spf13/cobra"

	"goabtest/domain/experiment"
	"goabtest/internal/errors"
	"goabtest/internal/planning"
)

func newValidateCmd() *cobra.Command {
	var params experiment.ParameterSet

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that alpha, power, mde and baseline lie within (0, 1)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields := params.Validate()
			if err := printJSON(cmd.OutOrStdout(), map[string]any{"valid": len(fields) == 0, "errors": fields}); err != nil {
				return err
			}
			return errors.Invalid(fields)
		},
	}
	addParameterFlags(cmd, &params)
	return cmd
}

func newSampleSizeCmd() *cobra.Command {
	var params experiment.ParameterSet
	var dailyVisitors, allocation float64

	cmd := &cobra.Command{
		Use:   "sample-size",
		Short: "Compute the per-group sample size, rounded up to the nearest thousand",
		Long: `Compute the effect-size based sample size per group.

With --daily-visitors the whole-day duration is reported as well.

Example: goabtest-cli sample-size --baseline 0.1 --mde 0.1 --daily-visitors 1000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := errors.Invalid(params.Validate()); err != nil {
				return err
			}
			result, err := planning.SampleSize(params)
			if err != nil {
				return err
			}
			out := map[string]any{"sample_size": result}
			if cmd.Flags().Changed("daily-visitors") {
				d, err := planning.CoarseDuration(params, dailyVisitors, allocation)
				if err != nil {
					return err
				}
				out["duration"] = d
			}
			logger(cmd).Debug().Int("per_group", result.SampleSizePerGroup).Msg("sample size computed")
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addParameterFlags(cmd, &params)
	cmd.Flags().Float64Var(&dailyVisitors, "daily-visitors", 0, "Daily visitors, enables the duration estimate")
	cmd.Flags().Float64Var(&allocation, "allocation", 1, "Share of visitors entering the experiment")
	return cmd
}

func newPowerCurveCmd() *cobra.Command {
	var params experiment.ParameterSet
	var workers int
	sweep := planning.DefaultPowerSweep()

	cmd := &cobra.Command{
		Use:   "power-curve",
		Short: "Evaluate power across a grid of per-group sample sizes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := errors.Invalid(params.Validate()); err != nil {
				return err
			}
			curve, err := planning.NewSweeper(workers).PowerCurve(cmd.Context(), params, sweep)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), curve)
		},
	}
	addParameterFlags(cmd, &params)
	cmd.Flags().IntVar(&sweep.Min, "min", sweep.Min, "Smallest per-group sample size")
	cmd.Flags().IntVar(&sweep.Max, "max", sweep.Max, "Largest per-group sample size")
	cmd.Flags().IntVar(&sweep.Step, "step", sweep.Step, "Grid step")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers (0 uses all CPUs)")
	return cmd
}

// durationFlags holds the estimator input plus the raw hypothesis flag
type durationFlags struct {
	in         planning.DurationInput
	hypothesis string
}

func addDurationFlags(cmd *cobra.Command, f *durationFlags) {
	f.in = planning.NewDurationInput(0.10, 0.10, 1000)
	cmd.Flags().Float64Var(&f.in.BaselineRate, "baseline", f.in.BaselineRate, "Baseline conversion rate")
	cmd.Flags().Float64Var(&f.in.MinimumDetectableEffect, "mde", f.in.MinimumDetectableEffect, "Relative minimum detectable effect")
	cmd.Flags().Float64Var(&f.in.DailyTraffic, "daily-traffic", f.in.DailyTraffic, "Daily visitors")
	cmd.Flags().Float64Var(&f.in.TrafficAllocation, "allocation", f.in.TrafficAllocation, "Share of traffic entering the experiment")
	cmd.Flags().Float64Var(&f.in.ControlRatio, "control-ratio", f.in.ControlRatio, "Share of experiment traffic sent to control")
	cmd.Flags().Float64Var(&f.in.Power, "power", f.in.Power, "Statistical power")
	cmd.Flags().Float64Var(&f.in.SignificanceLevel, "alpha", f.in.SignificanceLevel, "Significance level")
	cmd.Flags().StringVar(&f.hypothesis, "hypothesis", "two-sided", "Hypothesis type (two-sided, one-sided)")
}

func (f *durationFlags) input() (planning.DurationInput, error) {
	h, err := experiment.ParseHypothesisType(f.hypothesis)
	if err != nil {
		return planning.DurationInput{}, err
	}
	in := f.in
	in.Hypothesis = h
	return in, nil
}

func newDurationCmd() *cobra.Command {
	var f durationFlags

	cmd := &cobra.Command{
		Use:   "duration",
		Short: "Estimate how many days an experiment must run",
		Long: `Estimate the experiment duration from the direct two-proportion sample size.

Example: goabtest-cli duration --baseline 0.1 --mde 0.1 --daily-traffic 1000 --control-ratio 0.3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			result, err := planning.EstimateDuration(in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	addDurationFlags(cmd, &f)
	return cmd
}

func newDurationTrafficCmd() *cobra.Command {
	var f durationFlags
	var allocations []float64

	cmd := &cobra.Command{
		Use:   "duration-traffic",
		Short: "Sweep the duration across traffic allocations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			if len(allocations) == 0 {
				allocations = nil
			}
			points, err := planning.DurationVsTraffic(cmd.Context(), in, allocations)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), points)
		},
	}
	addDurationFlags(cmd, &f)
	cmd.Flags().Float64SliceVar(&allocations, "allocations", nil, "Allocations to evaluate (default 0.10 to 1.00 in 0.05 steps)")
	return cmd
}

func newDurationMDECmd() *cobra.Command {
	var f durationFlags
	var mdes []float64

	cmd := &cobra.Command{
		Use:   "duration-mde",
		Short: "Sweep the duration across relative minimum detectable effects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			points, err := planning.DurationVsMDE(cmd.Context(), in, mdes)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), points)
		},
	}
	addDurationFlags(cmd, &f)
	cmd.Flags().Float64SliceVar(&mdes, "mdes", []float64{0.05, 0.10, 0.15, 0.20, 0.25, 0.30}, "Relative MDEs to evaluate")
	return cmd
}
