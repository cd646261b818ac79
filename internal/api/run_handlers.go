package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"goabtest/domain/core"
	"goabtest/domain/experiment"
	"goabtest/internal/errors"
	"goabtest/internal/report"
)

func (s *Server) handleListRuns(c *gin.Context) {
	kind, err := experiment.ParseRunKind(c.Query("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if limit, err = cast.ToIntE(v); err != nil || limit <= 0 {
			respondError(c, errors.Newf(errors.CodeInvalidInput, "limit must be a positive integer, got %q", v))
			return
		}
	}

	runs, err := s.deps.Runs.List(c.Request.Context(), kind, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) loadRun(c *gin.Context) (*experiment.Run, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return nil, false
	}
	run, err := s.deps.Runs.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return run, true
}

func (s *Server) handleGetRun(c *gin.Context) {
	if run, ok := s.loadRun(c); ok {
		c.JSON(http.StatusOK, run)
	}
}

// handleRunReport renders the stored Markdown as HTML, or returns it raw with ?format=markdown
func (s *Server) handleRunReport(c *gin.Context) {
	run, ok := s.loadRun(c)
	if !ok {
		return
	}
	if strings.EqualFold(c.Query("format"), "markdown") {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(run.Report))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(run.Report))
}
