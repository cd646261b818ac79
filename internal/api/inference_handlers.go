package api

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"goabtest/app"
	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/errors"
	"goabtest/internal/inference"
	"goabtest/internal/validation"
)

func (s *Server) handleProportionTest(c *gin.Context) {
	in := inference.ProportionInput{ConfidenceLevel: inference.DefaultConfidenceLevel}
	if !bindJSON(c, &in) {
		return
	}
	result, err := inference.ProportionTest(in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, testResponse{TestResult: result, Interpretation: inference.Interpret(result)})
}

type meanTestRequest struct {
	inference.MeanTestOptions
	Control   []float64 `json:"control"`
	Treatment []float64 `json:"treatment"`
}

// testResponse pairs a result with its reading
type testResponse struct {
	experiment.TestResult
	Interpretation inference.Interpretation `json:"interpretation"`
}

// MarshalJSON keeps the result's own encoding and adds the interpretation
func (r testResponse) MarshalJSON() ([]byte, error) {
	base, err := r.TestResult.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return mergeJSON(base, map[string]any{"interpretation": r.Interpretation})
}

func (s *Server) handleMeanTest(c *gin.Context) {
	req := meanTestRequest{MeanTestOptions: inference.DefaultMeanTestOptions()}
	if !bindJSON(c, &req) {
		return
	}
	result, err := inference.MeanTest(req.Control, req.Treatment, req.MeanTestOptions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, testResponse{TestResult: result, Interpretation: inference.Interpret(result)})
}

type aaRequest struct {
	Control   []float64             `json:"control"`
	Treatment []float64             `json:"treatment"`
	Alpha     float64               `json:"alpha"`
	Metric    experiment.MetricType `json:"metric_type"`
}

func (s *Server) handleAATest(c *gin.Context) {
	req := aaRequest{Alpha: s.deps.Defaults.Alpha}
	if !bindJSON(c, &req) {
		return
	}
	result, err := validation.AATest(req.Control, req.Treatment, req.Alpha, req.Metric)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type srmRequest struct {
	ControlSize   int     `json:"control_size"`
	TreatmentSize int     `json:"treatment_size"`
	ExpectedRatio float64 `json:"expected_ratio"`
	Alpha         float64 `json:"alpha"`
}

func (s *Server) handleSRM(c *gin.Context) {
	req := srmRequest{ExpectedRatio: validation.DefaultExpectedRatio, Alpha: s.deps.Defaults.Alpha}
	if !bindJSON(c, &req) {
		return
	}
	result, err := validation.SampleRatioMismatch(req.ControlSize, req.TreatmentSize, req.ExpectedRatio, req.Alpha)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleAnalyze accepts a multipart upload: "file" is the experiment export,
// "pretest" an optional pre-experiment export for the AA test. Schema columns
// and labels may be overridden with form fields of the same name.
func (s *Server) handleAnalyze(c *gin.Context) {
	ctx := c.Request.Context()

	req, err := s.analyzeRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	schema := s.schemaFromForm(c)
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "dataset file is required")))
		return
	}
	if req.Dataset, err = readUpload(c, fh, schema); err != nil {
		respondError(c, err)
		return
	}
	if pre, err := c.FormFile("pretest"); err == nil {
		if req.PreTest, err = readUpload(c, pre, schema); err != nil {
			respondError(c, err)
			return
		}
	}

	result, err := s.deps.Analysis.Analyze(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) analyzeRequest(c *gin.Context) (app.AnalyzeRequest, error) {
	req := app.AnalyzeRequest{Title: c.PostForm("title")}

	if v := c.PostForm("alpha"); v != "" {
		alpha, err := cast.ToFloat64E(v)
		if err != nil {
			return req, errors.Newf(errors.CodeInvalidInput, "alpha %q is not a number", v)
		}
		req.Alpha = alpha
	}
	if v := c.PostForm("expected_ratio"); v != "" {
		ratio, err := cast.ToFloat64E(v)
		if err != nil {
			return req, errors.Newf(errors.CodeInvalidInput, "expected_ratio %q is not a number", v)
		}
		req.ExpectedRatio = ratio
	}
	if v := c.PostForm("alternative"); v != "" {
		alt, err := experiment.ParseAlternative(v)
		if err != nil {
			return req, err
		}
		req.Alternative = alt
	}
	if v := c.PostForm("metric_type"); v != "" {
		metric, err := experiment.ParseMetricType(v)
		if err != nil {
			return req, err
		}
		req.Metric = &metric
	}
	if v := c.PostForm("equal_var"); v != "" {
		eq, err := cast.ToBoolE(v)
		if err != nil {
			return req, errors.Newf(errors.CodeInvalidInput, "equal_var %q is not a boolean", v)
		}
		req.EqualVar = eq
	}
	return req, nil
}

func (s *Server) schemaFromForm(c *gin.Context) dataset.Schema {
	schema := s.deps.Schema
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(c.PostForm(key)); v != "" {
			*dst = v
		}
	}
	override(&schema.GroupColumn, "group_column")
	override(&schema.OutcomeColumn, "outcome_column")
	override(&schema.DateColumn, "date_column")
	override(&schema.ControlValue, "control_value")
	override(&schema.TreatmentValue, "treatment_value")
	return schema
}

func readUpload(c *gin.Context, fh *multipart.FileHeader, schema dataset.Schema) (*dataset.Dataset, error) {
	format, err := dataset.FormatFromName(fh.Filename)
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to open upload"))
	}
	defer f.Close()
	return dataset.Read(c.Request.Context(), f, format, schema)
}

// mergeJSON adds extra top-level keys to an encoded JSON object
func mergeJSON(base []byte, extra map[string]any) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, err
	}
	for k, v := range extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}
