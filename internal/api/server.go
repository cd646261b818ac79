// Package api serves the planning, inference and run-history operations over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"goabtest/app"
	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/metrics"
	"goabtest/ports"
)

// Dependencies are the collaborators the handlers call into
type Dependencies struct {
	Planning     *app.PlanningService
	Analysis     *app.AnalysisService
	Runs         ports.RunRepository
	Metrics      *metrics.Recorder
	Logger       zerolog.Logger
	Defaults     experiment.ParameterSet
	Schema       dataset.Schema
	DailyTraffic float64
}

// Server represents the HTTP API
type Server struct {
	router *gin.Engine
	deps   Dependencies
}

// NewServer creates the API server and registers every route
func NewServer(deps Dependencies) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(deps.Logger), Instrument(deps.Metrics))

	s := &Server{router: router, deps: deps}
	s.routes()
	return s
}

// ServeHTTP lets the server act as an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/parameters/validate", s.handleValidateParameters)

		plan := v1.Group("/plan")
		plan.POST("", s.handlePlan)
		plan.POST("/sample-size", s.handleSampleSize)
		plan.POST("/power-curve", s.handlePowerCurve)
		plan.POST("/duration", s.handleDuration)
		plan.POST("/duration/traffic", s.handleDurationVsTraffic)
		plan.POST("/duration/mde", s.handleDurationVsMDE)

		v1.POST("/tests/proportion", s.handleProportionTest)
		v1.POST("/tests/mean", s.handleMeanTest)
		v1.POST("/validation/aa", s.handleAATest)
		v1.POST("/validation/srm", s.handleSRM)
		v1.POST("/analyze", s.handleAnalyze)

		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
		v1.GET("/runs/:id/report", s.handleRunReport)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
