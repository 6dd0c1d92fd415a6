package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// ContextKeyTraceID is the gin context key carrying the active trace id.
const ContextKeyTraceID = "trace_id"

// HeaderRequestID is the fallback header consulted when no trace id was
// stored in the context.
const HeaderRequestID = "X-Request-ID"

// GetTraceID extracts the trace id for error responses. Context takes
// precedence over the request header.
func GetTraceID(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyTraceID); exists {
		if s, ok := v.(string); ok {
			return s
		}

		return ""
	}

	return c.Request.Header.Get(HeaderRequestID)
}

// HandleError maps a domain error onto the standard error envelope and
// writes it to the response. Unknown errors become a generic 500 so that
// internals never leak to clients.
func HandleError(c *gin.Context, err error) {
	status, resp := errorResponseFor(err)
	resp.TraceID = GetTraceID(c)
	c.JSON(status, resp)
}

// errorResponseFor picks the status code and envelope for a domain error.
func errorResponseFor(err error) (int, *ErrorResponse) {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsConflict(err):
		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, err.Error())

	case domain.IsValidation(err):
		return http.StatusBadRequest, NewErrorResponse(ErrorCodeValidation, err.Error())

	case domain.IsForbidden(err):
		return http.StatusForbidden, NewErrorResponse(ErrorCodeForbidden, err.Error())

	case domain.IsUnavailable(err):
		// Upstream details stay out of the response body.
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable, "service temporarily unavailable")

	default:
		return http.StatusInternalServerError, NewErrorResponse(
			ErrorCodeInternal, "an internal error occurred")
	}
}
