package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"goabtest/domain/experiment"
	"goabtest/internal/logging"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "goabtest-cli",
		Short:         "Plan and analyze two-arm A/B experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := logging.New(logging.Config{Level: logLevel, Format: "console"})
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newValidateCmd(),
		newSampleSizeCmd(),
		newPowerCurveCmd(),
		newDurationCmd(),
		newDurationTrafficCmd(),
		newDurationMDECmd(),
		newProportionCmd(),
		newSRMCmd(),
		newAnalyzeCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}

// addParameterFlags binds the four design parameters to flags
func addParameterFlags(cmd *cobra.Command, p *experiment.ParameterSet) {
	*p = experiment.DefaultParameterSet()
	cmd.Flags().Float64Var(&p.Alpha, "alpha", p.Alpha, "Significance level")
	cmd.Flags().Float64Var(&p.Power, "power", p.Power, "Statistical power")
	cmd.Flags().Float64Var(&p.MDE, "mde", p.MDE, "Relative minimum detectable effect")
	cmd.Flags().Float64Var(&p.BaselineRate, "baseline", p.BaselineRate, "Baseline conversion rate")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func logger(cmd *cobra.Command) *zerolog.Logger {
	return zerolog.Ctx(cmd.Context())
}
