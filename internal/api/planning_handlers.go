package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"goabtest/app"
	"goabtest/domain/experiment"
	"goabtest/internal/errors"
	"goabtest/internal/planning"
)

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

func (s *Server) handleValidateParameters(c *gin.Context) {
	params := s.deps.Defaults
	if !bindJSON(c, &params) {
		return
	}
	fields := params.Validate()
	c.JSON(http.StatusOK, validateResponse{Valid: len(fields) == 0, Errors: fields})
}

type sampleSizeRequest struct {
	experiment.ParameterSet
	DailyVisitors     *float64 `json:"daily_visitors,omitempty"`
	TrafficAllocation float64  `json:"traffic_allocation"`
}

type sampleSizeResponse struct {
	experiment.SampleSizeResult
	Duration *experiment.CoarseDuration `json:"duration,omitempty"`
}

func (s *Server) handleSampleSize(c *gin.Context) {
	req := sampleSizeRequest{ParameterSet: s.deps.Defaults, TrafficAllocation: 1}
	if !bindJSON(c, &req) {
		return
	}
	if err := errors.Invalid(req.Validate()); err != nil {
		respondError(c, err)
		return
	}

	result, err := planning.SampleSize(req.ParameterSet)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := sampleSizeResponse{SampleSizeResult: result}
	if req.DailyVisitors != nil {
		d, err := planning.CoarseDuration(req.ParameterSet, *req.DailyVisitors, req.TrafficAllocation)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Duration = &d
	}
	c.JSON(http.StatusOK, resp)
}

type powerCurveRequest struct {
	experiment.ParameterSet
	Sweep *planning.PowerSweep `json:"sweep,omitempty"`
}

func (s *Server) handlePowerCurve(c *gin.Context) {
	req := powerCurveRequest{ParameterSet: s.deps.Defaults}
	if !bindJSON(c, &req) {
		return
	}
	if err := errors.Invalid(req.Validate()); err != nil {
		respondError(c, err)
		return
	}

	sweep := planning.DefaultPowerSweep()
	if req.Sweep != nil {
		sweep = *req.Sweep
	}
	curve, err := s.deps.Planning.Sweeper().PowerCurve(c.Request.Context(), req.ParameterSet, sweep)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, curve)
}

// durationInput seeds a request with the configured defaults before binding
func (s *Server) durationInput() planning.DurationInput {
	in := planning.NewDurationInput(s.deps.Defaults.BaselineRate, s.deps.Defaults.MDE, s.deps.DailyTraffic)
	in.Power = s.deps.Defaults.Power
	in.SignificanceLevel = s.deps.Defaults.Alpha
	return in
}

func (s *Server) handleDuration(c *gin.Context) {
	in := s.durationInput()
	if !bindJSON(c, &in) {
		return
	}
	result, err := planning.EstimateDuration(in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type trafficSweepRequest struct {
	planning.DurationInput
	Allocations []float64 `json:"allocations,omitempty"`
}

func (s *Server) handleDurationVsTraffic(c *gin.Context) {
	req := trafficSweepRequest{DurationInput: s.durationInput()}
	if !bindJSON(c, &req) {
		return
	}
	points, err := s.deps.Planning.Sweeper().DurationVsTraffic(c.Request.Context(), req.DurationInput, req.Allocations)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

type mdeSweepRequest struct {
	planning.DurationInput
	MDEs []float64 `json:"mdes"`
}

func (s *Server) handleDurationVsMDE(c *gin.Context) {
	req := mdeSweepRequest{DurationInput: s.durationInput()}
	if !bindJSON(c, &req) {
		return
	}
	points, err := s.deps.Planning.Sweeper().DurationVsMDE(c.Request.Context(), req.DurationInput, req.MDEs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (s *Server) handlePlan(c *gin.Context) {
	req := app.PlanRequest{Parameters: s.deps.Defaults}
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.deps.Planning.Plan(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
