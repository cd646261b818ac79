package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goabtest/adapters/memory"
	"goabtest/app"
	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/inference"
	"goabtest/internal/validation"
)

func newProportionCmd() *cobra.Command {
	in := inference.ProportionInput{ConfidenceLevel: inference.DefaultConfidenceLevel}
	var alternative string

	cmd := &cobra.Command{
		Use:   "proportion",
		Short: "Compare two conversion rates with a two-proportion z test",
		Long: `Compare two conversion rates with a pooled two-proportion z test.

Example: goabtest-cli proportion --control-successes 100 --control-size 1000 --treatment-successes 130 --treatment-size 1000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alt, err := experiment.ParseAlternative(alternative)
			if err != nil {
				return err
			}
			in.Alternative = alt
			result, err := inference.ProportionTest(in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"result":         result,
				"interpretation": inference.Interpret(result),
			})
		},
	}
	cmd.Flags().IntVar(&in.ControlSuccesses, "control-successes", 0, "Conversions in control")
	cmd.Flags().IntVar(&in.ControlSize, "control-size", 0, "Visitors in control")
	cmd.Flags().IntVar(&in.TreatmentSuccesses, "treatment-successes", 0, "Conversions in treatment")
	cmd.Flags().IntVar(&in.TreatmentSize, "treatment-size", 0, "Visitors in treatment")
	cmd.Flags().Float64Var(&in.ConfidenceLevel, "confidence", in.ConfidenceLevel, "Confidence level")
	cmd.Flags().StringVar(&alternative, "alternative", "two-sided", "Alternative hypothesis (two-sided, larger, smaller)")
	return cmd
}

func newSRMCmd() *cobra.Command {
	var controlSize, treatmentSize int
	var expected, alpha float64

	cmd := &cobra.Command{
		Use:   "srm",
		Short: "Check the observed split against the expected ratio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := validation.SampleRatioMismatch(controlSize, treatmentSize, expected, alpha)
			if err != nil {
				return err
			}
			if !result.Passed {
				logger(cmd).Warn().Msg(result.WarningMessage)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&controlSize, "control-size", 0, "Observations in control")
	cmd.Flags().IntVar(&treatmentSize, "treatment-size", 0, "Observations in treatment")
	cmd.Flags().Float64Var(&expected, "expected-ratio", validation.DefaultExpectedRatio, "Expected control share")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	schema := dataset.DefaultSchema()
	var (
		alpha       float64
		alternative string
		metric      string
		pretest     string
		equalVar    bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Test a CSV or XLSX experiment export and run the validity checks",
		Long: `Load an experiment export, run the proportion or mean test, check the
sample ratio and, with --pretest, run an AA test on pre-experiment data.

Example: goabtest-cli analyze export.csv --pretest before.csv --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req := app.AnalyzeRequest{Title: args[0], Alpha: alpha, EqualVar: equalVar}
			alt, err := experiment.ParseAlternative(alternative)
			if err != nil {
				return err
			}
			req.Alternative = alt
			if metric != "" {
				m, err := experiment.ParseMetricType(metric)
				if err != nil {
					return err
				}
				req.Metric = &m
			}

			if req.Dataset, err = dataset.Load(ctx, args[0], schema); err != nil {
				return err
			}
			if pretest != "" {
				if req.PreTest, err = dataset.Load(ctx, pretest, schema); err != nil {
					return err
				}
			}

			svc := app.NewAnalysisService(memory.NewRunRepository(), nil, nil, experiment.DefaultParameterSet())
			result, err := svc.Analyze(ctx, req)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return printJSON(cmd.OutOrStdout(), result)
			case "markdown":
				_, err = fmt.Fprint(cmd.OutOrStdout(), result.Report)
				return err
			default:
				return fmt.Errorf("unknown format %q (json, markdown)", format)
			}
		},
	}
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level")
	cmd.Flags().StringVar(&alternative, "alternative", "two-sided", "Alternative hypothesis (two-sided, larger, smaller)")
	cmd.Flags().StringVar(&metric, "metric", "", "Metric type (binary, continuous); detected when empty")
	cmd.Flags().StringVar(&pretest, "pretest", "", "Pre-experiment export for the AA test")
	cmd.Flags().BoolVar(&equalVar, "equal-var", false, "Use the pooled-variance t test for continuous metrics")
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json, markdown)")
	cmd.Flags().StringVar(&schema.GroupColumn, "group-column", schema.GroupColumn, "Column holding the group label")
	cmd.Flags().StringVar(&schema.OutcomeColumn, "outcome-column", schema.OutcomeColumn, "Column holding the outcome")
	cmd.Flags().StringVar(&schema.DateColumn, "date-column", schema.DateColumn, "Column holding the observation date")
	cmd.Flags().StringVar(&schema.ControlValue, "control-value", schema.ControlValue, "Group label of control")
	cmd.Flags().StringVar(&schema.TreatmentValue, "treatment-value", schema.TreatmentValue, "Group label of treatment")
	return cmd
}
