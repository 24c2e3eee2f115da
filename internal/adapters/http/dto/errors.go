// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

// ErrorResponse is the envelope of every non-2xx answer.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Details maps field names to messages for validation failures.
	Details map[string]string `json:"details,omitempty"`
}

const (
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeParse       = "PARSE_ERROR"
	ErrorCodeBadRequest  = "BAD_REQUEST"
	ErrorCodeUpstream    = "UPSTREAM_ERROR"
	ErrorCodeStorage     = "STORAGE_ERROR"
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout     = "TIMEOUT"
	ErrorCodeInternal    = "INTERNAL_ERROR"
)

// traceIDKey lets a handler override the id reported in error bodies.
const traceIDKey = "trace_id"

var codeStatus = map[string]int{
	ErrorCodeNotFound:    http.StatusNotFound,
	ErrorCodeValidation:  http.StatusBadRequest,
	ErrorCodeParse:       http.StatusBadRequest,
	ErrorCodeBadRequest:  http.StatusBadRequest,
	ErrorCodeUpstream:    http.StatusBadGateway,
	ErrorCodeUnavailable: http.StatusServiceUnavailable,
	ErrorCodeTimeout:     http.StatusGatewayTimeout,
}

// errorRule maps one domain error class to a code. A rule with a fixed
// message hides the cause from callers.
type errorRule struct {
	is      func(error) bool
	code    string
	message string
}

var errorRules = []errorRule{
	{is: domain.IsNotFound, code: ErrorCodeNotFound},
	{is: domain.IsParse, code: ErrorCodeParse},
	{is: domain.IsFetch, code: ErrorCodeUpstream},
	{is: domain.IsStorage, code: ErrorCodeStorage, message: "the record store could not be written"},
}

func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	resp := NewErrorResponse(code, message)
	resp.Error.Details = details

	return resp
}

// WithTraceID sets the trace id and returns e.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode returns the status for an error code; unknown codes are 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// MapDomainError picks the status and body for err. Validation failures
// carry the offending field in Details; unknown errors get a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())
		if ve.Field != "" {
			resp.Error.Details = map[string]string{ve.Field: ve.Message}
		}

		return http.StatusBadRequest, resp
	}

	for _, rule := range errorRules {
		if !rule.is(err) {
			continue
		}

		message := rule.message
		if message == "" {
			message = err.Error()
		}

		return HTTPStatusFromCode(rule.code), NewErrorResponse(rule.code, message)
	}

	return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
}

// GetTraceID returns the id reported in error bodies: a handler override,
// then the active span, then the request id already echoed on the response.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(traceIDKey); ok {
		s, _ := v.(string)
		return s
	}

	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return c.Writer.Header().Get("X-Request-ID")
}

// HandleError writes the mapped response. Server-side failures are logged
// with their full cause.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		logging.FromContext(ctx).ErrorContext(ctx, "request failed",
			slog.Any("error", err),
			slog.Int("status", status),
			slog.String("trace_id", resp.TraceID))
	}

	c.JSON(status, resp)
}

// HandleErrorCode reports a failure raised by the adapter itself.
func HandleErrorCode(c *gin.Context, code, message string) {
	c.JSON(HTTPStatusFromCode(code), NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}

// HandleBindError answers a bind or validation failure, listing fields
// when the validator named them.
func HandleBindError(c *gin.Context, err error) {
	fields := ValidationErrors(err)
	if len(fields) == 0 {
		HandleErrorCode(c, ErrorCodeBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusBadRequest,
		NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", fields).WithTraceID(GetTraceID(c)))
}
