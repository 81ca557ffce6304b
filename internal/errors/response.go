package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`   // error code for consumer-side mapping
	Message string `json:"message"` // human-readable description
}

// RespondWithError writes the standard error payload.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// Shorthand responders for the common cases.

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "An internal error occurred. Please try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// RateLimited answers 429 with a Retry-After hint in seconds.
func RateLimited(c *gin.Context, retryAfterSeconds int, message string) {
	if message == "" {
		message = "Upstream rate limit reached. Please retry later"
	}
	if retryAfterSeconds > 0 {
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfterSeconds))
	}
	RespondWithError(c, http.StatusTooManyRequests, UpstreamRateLimited, message)
}

func BadGateway(c *gin.Context, message string) {
	if message == "" {
		message = "An upstream service is unavailable. Please try again later"
	}
	RespondWithError(c, http.StatusBadGateway, UpstreamUnavailable, message)
}
