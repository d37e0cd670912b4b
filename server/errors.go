package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/scigolab/auth"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/service"
	"github.com/YuminosukeSato/scigolab/store"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInsufficientData  = "INSUFFICIENT_DATA"
	CodeUnparseableFile   = "UNPARSEABLE_FILE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRunFailed         = "RUN_FAILED"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// ExperimentID is set when a run failed after its record was stored.
	ExperimentID int64 `json:"experiment_id,omitempty"`
}

func classify(err error) (int, ErrorResponse) {
	var (
		valErr    *errors.ValidationError
		insufErr  *errors.DataInsufficiencyError
		parseErr  *errors.UpstreamParseError
		failedErr *service.RunFailedError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: "invalid or missing token", Code: CodeUnauthorized}
	case errors.As(err, &valErr):
		return http.StatusBadRequest, ErrorResponse{Error: valErr.Error(), Code: CodeValidationFailed}
	case errors.As(err, &insufErr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: insufErr.Error(), Code: CodeInsufficientData}
	case errors.As(err, &parseErr):
		code := CodeUnparseableFile
		if parseErr.Reason == "unsupported format" {
			code = CodeUnsupportedFormat
		}
		return http.StatusBadRequest, ErrorResponse{Error: parseErr.Error(), Code: code}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found", Code: CodeNotFound}
	case errors.As(err, &failedErr):
		return http.StatusInternalServerError, ErrorResponse{
			Error:        failedErr.Error(),
			Code:         CodeRunFailed,
			ExperimentID: failedErr.ExperimentID,
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "run did not complete in time", Code: CodeUnavailable}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: CodeInternal}
	}
}

func writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		requestLogger(c).Error("request failed", "error", err, "code", body.Code)
	}
	c.AbortWithStatusJSON(status, body)
}
