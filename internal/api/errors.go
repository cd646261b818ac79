package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"goabtest/internal/errors"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps error codes onto HTTP status codes
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeEmptyGroup, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Error:  err.Error(),
		Code:   errors.GetCode(err),
		Fields: errors.Fields(err),
	})
}

// bindJSON decodes the body, keeping enum parse errors as INVALID_INPUT
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if !errors.IsAppError(err) {
			err = errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "invalid request body"))
		}
		respondError(c, err)
		return false
	}
	return true
}
