package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"goabtest/adapters/memory"
	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/errors"
	"goabtest/internal/metrics"
	"goabtest/internal/testkit"
	"goabtest/internal/validation"
)

func loadExport(t *testing.T, e testkit.Export) *dataset.Dataset {
	t.Helper()
	raw, err := e.CSV()
	require.NoError(t, err)
	ds, err := dataset.Read(context.Background(), bytes.NewReader(raw), dataset.FormatCSV, dataset.DefaultSchema())
	require.NoError(t, err)
	return ds
}

func newAnalysisService(repo *mockRunRepository) *AnalysisService {
	if repo == nil {
		return NewAnalysisService(memory.NewRunRepository(), validation.NewBattery(2), metrics.New(), experiment.DefaultParameterSet())
	}
	return NewAnalysisService(repo, nil, nil, experiment.DefaultParameterSet())
}

func TestAnalyzeBinaryExport(t *testing.T) {
	repo := memory.NewRunRepository()
	svc := NewAnalysisService(repo, validation.NewBattery(2), metrics.New(), experiment.DefaultParameterSet())
	ctx := context.Background()

	ds := loadExport(t, testkit.DefaultExport())
	result, err := svc.Analyze(ctx, AnalyzeRequest{Dataset: ds})
	require.NoError(t, err)

	assert.Equal(t, experiment.Binary, result.Metric)
	assert.Equal(t, experiment.ProportionZTest, result.Test.Method)
	assert.Equal(t, 10000, result.Dataset.RowCount)
	assert.Equal(t, 0.05, result.Test.Alpha)
	assert.Equal(t, result.Test.PValue < 0.05, result.Test.Significant)
	require.Len(t, result.Validations, 1)
	assert.Equal(t, experiment.SampleRatioMismatch, result.Validations[0].TestType)
	assert.True(t, result.Validations[0].Passed)
	assert.Len(t, result.DailyMetrics, 14)
	assert.Contains(t, result.Report, "## Validity Checks")

	stored, err := repo.Get(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, experiment.RunKindAnalysis, stored.Kind)
	assert.Equal(t, ds.Hash, stored.DatasetHash)
}

func TestAnalyzeWithPreTestRunsAA(t *testing.T) {
	svc := newAnalysisService(nil)

	pre := testkit.DefaultExport()
	pre.TreatmentRate = pre.ControlRate
	pre.Seed = 7

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Dataset: loadExport(t, testkit.DefaultExport()),
		PreTest: loadExport(t, pre),
	})
	require.NoError(t, err)

	require.Len(t, result.Validations, 2)
	assert.Equal(t, experiment.SampleRatioMismatch, result.Validations[0].TestType)
	assert.Equal(t, experiment.AABinary, result.Validations[1].TestType)
}

func TestAnalyzeContinuous(t *testing.T) {
	csv := "group,submitted\n" +
		"0,10.1\n0,9.8\n0,10.4\n0,10.0\n0,9.7\n0,10.2\n0,9.9\n0,10.3\n" +
		"1,10.6\n1,10.9\n1,10.2\n1,11.1\n1,10.4\n1,10.8\n1,10.5\n"
	ds, err := dataset.Read(context.Background(), strings.NewReader(csv), dataset.FormatCSV, dataset.DefaultSchema())
	require.NoError(t, err)

	result, err := newAnalysisService(nil).Analyze(context.Background(), AnalyzeRequest{Dataset: ds})
	require.NoError(t, err)

	assert.Equal(t, experiment.Continuous, result.Metric)
	assert.Equal(t, experiment.MeanTTest, result.Test.Method)
	assert.InDelta(t, 4.067780410737027, result.Test.Statistic, 1e-9)
	assert.InDelta(t, 0.0017225742514010989, result.Test.PValue, 1e-9)
	assert.True(t, result.Test.Significant)
	assert.Empty(t, result.DailyMetrics)
}

func TestAnalyzeBinaryMetricOnContinuousData(t *testing.T) {
	csv := "group,submitted\n0,2.5\n0,1.0\n1,3.0\n1,4.0\n"
	ds, err := dataset.Read(context.Background(), strings.NewReader(csv), dataset.FormatCSV, dataset.DefaultSchema())
	require.NoError(t, err)

	binary := experiment.Binary
	_, err = newAnalysisService(nil).Analyze(context.Background(), AnalyzeRequest{Dataset: ds, Metric: &binary})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestAnalyzeEmptyTreatment(t *testing.T) {
	csv := "group,submitted\n0,1\n0,0\n0,1\n"
	ds, err := dataset.Read(context.Background(), strings.NewReader(csv), dataset.FormatCSV, dataset.DefaultSchema())
	require.NoError(t, err)

	repo := new(mockRunRepository)
	_, err = newAnalysisService(repo).Analyze(context.Background(), AnalyzeRequest{Dataset: ds})
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmptyGroup, errors.GetCode(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAnalyzeRejectsBadAlpha(t *testing.T) {
	ds := loadExport(t, testkit.DefaultExport())
	_, err := newAnalysisService(nil).Analyze(context.Background(), AnalyzeRequest{Dataset: ds, Alpha: 1.5})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.Contains(t, errors.Fields(err), experiment.FieldAlpha)
}

func TestAnalyzeRequiresDataset(t *testing.T) {
	_, err := newAnalysisService(nil).Analyze(context.Background(), AnalyzeRequest{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}
