package errors

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/app/service"
	"github.com/tmarsden/tradescout-backend/internal/clients"
	"gorm.io/gorm"
)

// ErrorInfo is the classified form of an error.
type ErrorInfo struct {
	Status            int    // HTTP status to answer with
	Code              string // error code (see codes.go)
	Message           string // human-readable description
	RetryAfterSeconds int    // > 0 only for rate limits
}

// ParseError classifies an error from the search pipeline into an HTTP
// status, an error code and a safe message. Sensitive upstream detail stays
// in the logs, not the response.
func ParseError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "An internal error occurred",
		}
	}

	// query validation
	switch {
	case errors.Is(err, model.ErrLocationRequired):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationRequired, Message: err.Error()}
	case errors.Is(err, model.ErrNoCategories):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationRequired, Message: err.Error()}
	case errors.Is(err, model.ErrRadiusOutOfRange):
		return ErrorInfo{Status: http.StatusBadRequest, Code: SearchInvalidRadius, Message: err.Error()}
	case errors.Is(err, model.ErrTooManyCategories),
		errors.Is(err, model.ErrMaxResultsTooLarge):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidRange, Message: err.Error()}
	}

	if errors.Is(err, service.ErrLocationNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    SearchLocationNotFound,
			Message: "The location could not be resolved. Check the postcode or place name",
		}
	}

	// upstream adapters
	if retryAfter, ok := clients.IsRateLimited(err); ok {
		return ErrorInfo{
			Status:            http.StatusTooManyRequests,
			Code:              UpstreamRateLimited,
			Message:           "Upstream rate limit reached. Please retry later",
			RetryAfterSeconds: int(retryAfter.Seconds()),
		}
	}
	if clients.IsUnavailable(err) {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    UpstreamUnavailable,
			Message: "An upstream service is unavailable. Please try again later",
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{
			Status:  http.StatusGatewayTimeout,
			Code:    UpstreamUnavailable,
			Message: "The search did not complete in time. Please try again",
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: "The requested record was not found",
		}
	}

	// connection-level failures reaching this far are upstream problems
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    UpstreamUnavailable,
			Message: "An upstream service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: "An internal error occurred. Please try again later",
	}
}

// Respond classifies err and writes the matching error response.
func Respond(c *gin.Context, err error) {
	info := ParseError(err)
	if info.RetryAfterSeconds > 0 {
		c.Header("Retry-After", strconv.Itoa(info.RetryAfterSeconds))
	}
	c.JSON(info.Status, ErrorResponse{Error: info.Code, Message: info.Message})
}
