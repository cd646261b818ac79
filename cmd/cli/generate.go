package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"goabtest/internal/testkit"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic samples or experiment exports",
	}
	cmd.AddCommand(newGenerateSamplesCmd(), newGenerateExportCmd())
	return cmd
}

func newGenerateSamplesCmd() *cobra.Command {
	var (
		dist                     string
		controlParam, treatParam float64
		std                      float64
		size                     int
		seed                     uint64
	)

	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Draw control and treatment samples from a normal or Bernoulli distribution",
		Long: `Draw control and treatment samples.

For --dist normal the params are the two means and --std is shared; for
--dist bernoulli the params are the two success probabilities.

Example: goabtest-cli generate samples --dist bernoulli --control 0.1 --treatment 0.12 --size 1000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := testkit.NewGenerator(seed)
			var control, treatment []float64
			switch strings.ToLower(dist) {
			case "normal":
				control = g.Normal(controlParam, std, size)
				treatment = g.Normal(treatParam, std, size)
			case "bernoulli":
				control = g.Bernoulli(controlParam, size)
				treatment = g.Bernoulli(treatParam, size)
			default:
				return fmt.Errorf("unknown distribution %q (normal, bernoulli)", dist)
			}
			return printJSON(cmd.OutOrStdout(), map[string][]float64{"control": control, "treatment": treatment})
		},
	}
	cmd.Flags().StringVar(&dist, "dist", "normal", "Distribution (normal, bernoulli)")
	cmd.Flags().Float64Var(&controlParam, "control", 0, "Control mean or probability")
	cmd.Flags().Float64Var(&treatParam, "treatment", 0, "Treatment mean or probability")
	cmd.Flags().Float64Var(&std, "std", 1, "Standard deviation for normal samples")
	cmd.Flags().IntVar(&size, "size", 100, "Samples per group")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	return cmd
}

func newGenerateExportCmd() *cobra.Command {
	e := testkit.DefaultExport()
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a synthetic group/submitted/date export as CSV or XLSX",
		Long: `Write a synthetic experiment export. The format follows the --out extension;
without --out CSV is written to stdout.

Example: goabtest-cli generate export --control-rate 0.1 --treatment-rate 0.12 --out export.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			if strings.EqualFold(filepath.Ext(out), ".xlsx") {
				data, err = e.XLSX()
			} else {
				data, err = e.CSV()
			}
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			logger(cmd).Info().Str("path", out).Int("rows", e.ControlSize+e.TreatmentSize).Msg("export written")
			return nil
		},
	}
	cmd.Flags().Float64Var(&e.ControlRate, "control-rate", e.ControlRate, "Control conversion rate")
	cmd.Flags().Float64Var(&e.TreatmentRate, "treatment-rate", e.TreatmentRate, "Treatment conversion rate")
	cmd.Flags().IntVar(&e.ControlSize, "control-size", e.ControlSize, "Control rows")
	cmd.Flags().IntVar(&e.TreatmentSize, "treatment-size", e.TreatmentSize, "Treatment rows")
	cmd.Flags().IntVar(&e.Days, "days", e.Days, "Days the rows are spread over")
	cmd.Flags().Uint64Var(&e.Seed, "seed", e.Seed, "Random seed")
	cmd.Flags().StringVar(&out, "out", "", "Output file (.csv or .xlsx)")
	return cmd
}
