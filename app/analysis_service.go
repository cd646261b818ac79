package app

import (
	"context"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"goabtest/domain/core"
	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/errors"
	"goabtest/internal/inference"
	"goabtest/internal/metrics"
	"goabtest/internal/report"
	"goabtest/internal/validation"
	"goabtest/ports"
)

// AnalysisService runs the hypothesis test and validity checks on an experiment dataset
type AnalysisService struct {
	runs     ports.RunRepository
	battery  *validation.Battery
	metrics  *metrics.Recorder
	defaults experiment.ParameterSet
}

// AnalyzeRequest defines the inputs for an analysis.
// Metric nil detects binary outcomes automatically. PreTest, when set, is the
// pre-experiment data the AA test runs on. Zero Alpha and ExpectedRatio use
// the service defaults.
type AnalyzeRequest struct {
	Title         string
	Dataset       *dataset.Dataset
	PreTest       *dataset.Dataset
	Metric        *experiment.MetricType
	Alpha         float64
	Alternative   experiment.Alternative
	EqualVar      bool
	ExpectedRatio float64
}

// AnalysisResult contains the complete output of an analysis
type AnalysisResult struct {
	RunID          core.RunID                    `json:"run_id"`
	Metric         experiment.MetricType         `json:"metric_type"`
	Dataset        dataset.Summary               `json:"dataset"`
	Test           experiment.TestResult         `json:"test"`
	Interpretation inference.Interpretation      `json:"interpretation"`
	Validations    []experiment.ValidationResult `json:"validations"`
	DailyMetrics   []dataset.DailyMetric         `json:"daily_metrics,omitempty"`
	Report         string                        `json:"report"`
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(runs ports.RunRepository, battery *validation.Battery, recorder *metrics.Recorder, defaults experiment.ParameterSet) *AnalysisService {
	if battery == nil {
		battery = validation.NewBattery(validation.DefaultCapacity)
	}
	return &AnalysisService{
		runs:     runs,
		battery:  battery,
		metrics:  recorder,
		defaults: defaults,
	}
}

// Analyze splits the dataset, tests treatment against control, runs SRM and
// the optional AA test, renders the report and saves an analysis run
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (result *AnalysisResult, err error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx).With().Str("component", "analysis").Logger()

	if req.Dataset == nil {
		return nil, errors.InvalidInput("dataset is required")
	}

	alpha := req.Alpha
	if alpha == 0 {
		alpha = s.defaults.Alpha
	}
	if !(alpha > 0 && alpha < 1) {
		return nil, errors.Invalid(map[string]string{experiment.FieldAlpha: "Alpha must be between 0 and 1"})
	}
	expected := req.ExpectedRatio
	if expected == 0 {
		expected = validation.DefaultExpectedRatio
	}

	metric := experiment.Continuous
	if req.Metric != nil {
		metric = *req.Metric
	} else if req.Dataset.IsBinary() {
		metric = experiment.Binary
	}
	if metric == experiment.Binary && !req.Dataset.IsBinary() {
		return nil, errors.InvalidInput("binary metric requires 0/1 outcomes")
	}

	method := experiment.MeanTTest
	if metric == experiment.Binary {
		method = experiment.ProportionZTest
	}
	defer func() { s.metrics.AnalysisCompleted(string(method), err) }()

	summary, err := req.Dataset.Summary()
	if err != nil {
		return nil, err
	}

	control, treatment := req.Dataset.Split()
	test, err := runTest(metric, control, treatment, 1-alpha, req.Alternative, req.EqualVar)
	if err != nil {
		return nil, errors.Wrap(err, "hypothesis test failed")
	}

	checks := []validation.Check{validation.SRMCheck{
		ControlSize:   len(control),
		TreatmentSize: len(treatment),
		ExpectedRatio: expected,
		Alpha:         alpha,
	}}
	if req.PreTest != nil {
		preControl, preTreatment := req.PreTest.Split()
		checks = append(checks, validation.AACheck{
			Control:   preControl,
			Treatment: preTreatment,
			Alpha:     alpha,
			Metric:    metric,
		})
	}
	validations, err := validation.Results(s.battery.Run(ctx, checks))
	if err != nil {
		return nil, err
	}
	for _, v := range validations {
		if !v.Passed {
			s.metrics.ValidationFailed(string(v.TestType))
			logger.Warn().Str("test_type", string(v.TestType)).Msg(v.WarningMessage)
		}
	}

	result = &AnalysisResult{
		Metric:         metric,
		Dataset:        summary,
		Test:           test,
		Interpretation: inference.Interpret(test),
		Validations:    validations,
	}
	if req.Dataset.HasDates {
		if result.DailyMetrics, err = req.Dataset.DailyMetrics(); err != nil {
			return nil, err
		}
	}
	result.Report = report.AnalysisMarkdown(report.Analysis{
		Title:          req.Title,
		Metric:         metric,
		Dataset:        &summary,
		Test:           test,
		Interpretation: result.Interpretation,
		Validations:    validations,
	})

	params := s.defaults
	params.Alpha = alpha
	result.RunID = core.NewRunID()
	run, err := experiment.NewRun(experiment.RunKindAnalysis, params, result)
	if err != nil {
		return nil, err
	}
	run.ID = result.RunID
	run.Report = result.Report
	run.DatasetHash = req.Dataset.Hash

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to save analysis")
	}

	logger.Info().
		Str("run_id", run.ID.String()).
		Str("method", string(method)).
		Int("control_size", len(control)).
		Int("treatment_size", len(treatment)).
		Bool("significant", test.Significant).
		Dur("elapsed", time.Since(start)).
		Msg("analysis completed")

	return result, nil
}

// runTest dispatches to the proportion z test or the two-sample t test
func runTest(metric experiment.MetricType, control, treatment []float64, confidence float64, alt experiment.Alternative, equalVar bool) (experiment.TestResult, error) {
	if metric == experiment.Continuous {
		return inference.MeanTest(control, treatment, inference.MeanTestOptions{
			ConfidenceLevel: confidence,
			Alternative:     alt,
			EqualVar:        equalVar,
		})
	}

	controlSuccesses, err := successes(control)
	if err != nil {
		return experiment.TestResult{}, err
	}
	treatmentSuccesses, err := successes(treatment)
	if err != nil {
		return experiment.TestResult{}, err
	}
	return inference.ProportionTest(inference.ProportionInput{
		ControlSuccesses:   controlSuccesses,
		ControlSize:        len(control),
		TreatmentSuccesses: treatmentSuccesses,
		TreatmentSize:      len(treatment),
		ConfidenceLevel:    confidence,
		Alternative:        alt,
	})
}

func successes(outcomes []float64) (int, error) {
	if len(outcomes) == 0 {
		return 0, nil
	}
	sum, err := stats.Sum(outcomes)
	if err != nil {
		return 0, errors.Computation("success count", err)
	}
	return int(math.Round(sum)), nil
}
