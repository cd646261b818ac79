package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goabtest/adapters/memory"
	"goabtest/app"
	"goabtest/domain/core"
	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/metrics"
	"goabtest/internal/planning"
	"goabtest/internal/testkit"
	"goabtest/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	runs := memory.NewRunRepository()
	recorder := metrics.New()
	defaults := experiment.DefaultParameterSet()
	return NewServer(Dependencies{
		Planning:     app.NewPlanningService(runs, planning.NewSweeper(2), recorder, 1000),
		Analysis:     app.NewAnalysisService(runs, validation.NewBattery(2), recorder, defaults),
		Runs:         runs,
		Metrics:      recorder,
		Logger:       zerolog.Nop(),
		Defaults:     defaults,
		Schema:       dataset.DefaultSchema(),
		DailyTraffic: 1000,
	})
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	rec, body := doJSON(t, newTestServer(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestValidateParameters(t *testing.T) {
	s := newTestServer()

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/parameters/validate", `{"alpha": 0, "mde": 1.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["valid"])
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "alpha")
	assert.Contains(t, errs, "mde")
	assert.NotContains(t, errs, "power")

	_, body = doJSON(t, s, http.MethodPost, "/api/v1/parameters/validate", `{}`)
	assert.Equal(t, true, body["valid"])
}

func TestSampleSizeWithCoarseDuration(t *testing.T) {
	rec, body := doJSON(t, newTestServer(), http.MethodPost, "/api/v1/plan/sample-size", `{"daily_visitors": 1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.InDelta(t, 0.03262940076737697, body["effect_size"], 1e-12)
	assert.EqualValues(t, 15000, body["sample_size_per_group"])
	assert.EqualValues(t, 30000, body["total_sample_size"])
	duration := body["duration"].(map[string]any)
	assert.EqualValues(t, 30, duration["duration_days"])
	assert.Equal(t, false, duration["days_infinite"])
}

func TestSampleSizeInvalidParameters(t *testing.T) {
	rec, body := doJSON(t, newTestServer(), http.MethodPost, "/api/v1/plan/sample-size", `{"baseline_rate": 1.2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["fields"], "baseline_rate")
}

func TestPowerCurve(t *testing.T) {
	rec, body := doJSON(t, newTestServer(), http.MethodPost, "/api/v1/plan/power-curve",
		`{"sweep": {"min_samples": 5000, "max_samples": 15000, "step": 5000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []any{5000.0, 10000.0, 15000.0}, body["sample_sizes"])
	powers := body["power_values"].([]any)
	require.Len(t, powers, 3)
	assert.InDelta(t, 0.37137, powers[0], 1e-4)
	assert.InDelta(t, 0.80668, powers[2], 1e-4)
}

func TestDuration(t *testing.T) {
	s := newTestServer()

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/plan/duration", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 14313, body["sample_size_per_variant"])
	assert.EqualValues(t, 28626, body["total_sample_size"])
	assert.InDelta(t, 28.626, body["days_required"], 1e-9)

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/plan/duration", `{"daily_traffic": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["days_required"])
	assert.Equal(t, true, body["days_infinite"])

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/plan/duration", `{"control_ratio": 1, "power": 0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "control_ratio")
	assert.Contains(t, fields, "power")

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/plan/duration", `{"hypothesis_type": "three-sided"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestDurationSweeps(t *testing.T) {
	s := newTestServer()

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/plan/duration/traffic", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	points := body["points"].([]any)
	require.Len(t, points, 19)
	first := points[0].(map[string]any)
	assert.InDelta(t, 10.0, first["traffic_allocation"], 1e-9)
	assert.InDelta(t, 286.26, first["days_required"], 1e-9)

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/plan/duration/mde", `{"mdes": [0.05, 0.2]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	points = body["points"].([]any)
	require.Len(t, points, 2)
	assert.InDelta(t, 5.0, points[0].(map[string]any)["minimum_detectable_effect"], 1e-9)
	assert.EqualValues(t, 2*56886, points[0].(map[string]any)["total_sample_size"])
	assert.EqualValues(t, 2*3623, points[1].(map[string]any)["total_sample_size"])

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/plan/duration/mde", `{"mdes": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestProportionTest(t *testing.T) {
	s := newTestServer()

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/tests/proportion",
		`{"control_successes": 100, "control_size": 1000, "treatment_successes": 130, "treatment_size": 1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 2.102740605622114, body["statistic"], 1e-9)
	assert.InDelta(t, 0.03548845046647475, body["p_value"], 1e-9)
	assert.Equal(t, true, body["significant"])
	assert.Equal(t, "proportion_z_test", body["method"])
	interp := body["interpretation"].(map[string]any)
	assert.Equal(t, "positive", interp["interval"])

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/tests/proportion",
		`{"control_successes": 100, "control_size": 1000, "treatment_successes": 130, "treatment_size": 1000, "alternative": "sideways"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/tests/proportion",
		`{"control_successes": 0, "control_size": 0, "treatment_successes": 5, "treatment_size": 10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_GROUP", body["code"])
}

func TestMeanTest(t *testing.T) {
	rec, body := doJSON(t, newTestServer(), http.MethodPost, "/api/v1/tests/mean", `{
		"control": [10.1, 9.8, 10.4, 10.0, 9.7, 10.2, 9.9, 10.3],
		"treatment": [10.6, 10.9, 10.2, 11.1, 10.4, 10.8, 10.5],
		"alternative": "larger"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 4.067780410737027, body["statistic"], 1e-9)
	assert.InDelta(t, 0.0008612871257005494, body["p_value"], 1e-9)
	assert.Equal(t, "mean_t_test", body["method"])
}

func TestValidationEndpoints(t *testing.T) {
	s := newTestServer()

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/validation/srm", `{"control_size": 5000, "treatment_size": 5000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["passed"])
	assert.Equal(t, "Sample Ratio Mismatch", body["test_type"])

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/validation/srm", `{"control_size": 0, "treatment_size": 0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_GROUP", body["code"])

	rec, body = doJSON(t, s, http.MethodPost, "/api/v1/validation/aa",
		`{"control": [1,0,1,0,1,0], "treatment": [0,1,0,1,0,1], "metric_type": "binary"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "AA Test (Binary)", body["test_type"])
	assert.Equal(t, true, body["passed"])
}

func TestPlanAndRunHistory(t *testing.T) {
	s := newTestServer()

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/plan", `{"title": "Checkout button"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := body["run_id"].(string)
	require.NotEmpty(t, id)

	rec, body = doJSON(t, s, http.MethodGet, "/api/v1/runs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "plan", body["kind"])

	rec, body = doJSON(t, s, http.MethodGet, "/api/v1/runs?kind=plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/runs/"+id+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Checkout button</h1>")

	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/runs/"+id+"/report?format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Checkout button"))

	rec, body = doJSON(t, s, http.MethodGet, "/api/v1/runs/"+core.NewRunID().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, s, http.MethodGet, "/api/v1/runs?kind=everything", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAnalyzeUpload(t *testing.T) {
	s := newTestServer()
	raw, err := testkit.DefaultExport().CSV()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, multipartUpload(t, "export.csv", raw, map[string]string{"alpha": "0.05", "title": "Signup flow"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "binary", body["metric_type"])
	assert.NotEmpty(t, body["run_id"])
	assert.Len(t, body["daily_metrics"], 14)
	assert.Len(t, body["validations"], 1)
}

func TestAnalyzeUploadErrors(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, multipartUpload(t, "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, multipartUpload(t, "export.json", []byte("{}"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, multipartUpload(t, "export.csv", []byte("group,submitted\n0,1\n1,0\n"), map[string]string{"metric_type": "ordinal"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, multipartUpload(t, "export.csv", []byte("variant,submitted\n0,1\n"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "group")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	doJSON(t, s, http.MethodPost, "/api/v1/plan", `{}`)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `goabtest_plans_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/plan"`)
}
