// Package apierrors defines the structured error envelope returned by every
// API endpoint and the helpers that map error codes onto HTTP status codes.
package apierrors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/observability"
	"github.com/loopboard/loopboard/internal/server/middleware"
)

// Envelope is the canonical error carried through the service. It implements
// the error interface so handlers can return it through ordinary error paths.
type Envelope struct {
	Code      string
	Message   string
	Details   map[string]interface{}
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *Envelope) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *Envelope) Unwrap() error {
	return e.Err
}

// New creates an envelope with the given code and message.
func New(code, message string) *Envelope {
	return &Envelope{Code: code, Message: message}
}

// WithDetail attaches a single key/value detail, allocating the map lazily.
func (e *Envelope) WithDetail(key string, value interface{}) *Envelope {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error.
func (e *Envelope) WithCause(err error) *Envelope {
	e.Err = err
	return e
}

// Error creation helpers for common error types

// User Errors (400-level)
func NewInvalidInputError(message string) *Envelope {
	return New("INVALID_INPUT", message)
}

func NewNotFoundError(message string) *Envelope {
	return New("NOT_FOUND", message)
}

func NewUnauthorizedError(message string) *Envelope {
	return New("UNAUTHORIZED", message)
}

func NewForbiddenError(message string) *Envelope {
	return New("FORBIDDEN", message)
}

func NewMethodNotAllowedError(message string) *Envelope {
	return New("METHOD_NOT_ALLOWED", message)
}

func NewValidationError(message string) *Envelope {
	return New("VALIDATION_FAILED", message)
}

// Server Errors (500-level)
func NewInternalError(message string) *Envelope {
	return New("INTERNAL_ERROR", message)
}

func NewDatabaseError(message string) *Envelope {
	return New("DATABASE_ERROR", message)
}

func NewTimeoutError(message string) *Envelope {
	return New("TIMEOUT", message)
}

func NewServiceUnavailableError(message string) *Envelope {
	return New("SERVICE_UNAVAILABLE", message)
}

// EnsureEnvelope normalizes any error into an Envelope.
func EnsureEnvelope(err error) *Envelope {
	if err == nil {
		return New("INTERNAL_ERROR", "unexpected nil error")
	}
	if envelope, ok := err.(*Envelope); ok && envelope != nil {
		return envelope
	}
	return NewInternalError("unexpected error").WithCause(err)
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case "INVALID_INPUT", "VALIDATION_FAILED":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "UNAUTHORIZED":
		return http.StatusUnauthorized
	case "FORBIDDEN":
		return http.StatusForbidden
	case "METHOD_NOT_ALLOWED":
		return http.StatusMethodNotAllowed
	case "CONFLICT":
		return http.StatusConflict
	case "RATE_LIMITED":
		return http.StatusTooManyRequests
	case "TIMEOUT":
		return http.StatusGatewayTimeout
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorDetail captures the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope structure.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError normalizes the supplied error and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the envelope, logs it and writes the JSON body.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *Envelope) {
	if w == nil {
		return
	}

	if envelope.RequestID == "" {
		var ctx context.Context
		if r != nil {
			ctx = r.Context()
		}
		envelope.RequestID = requestID(ctx)
	}

	statusCode := HTTPStatusFromCode(envelope.Code)

	response := HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   envelope.Details,
			RequestID: envelope.RequestID,
		},
	}

	logHTTPError(envelope, statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// requestID gets the request ID from context, falling back to a fresh UUID so
// error responses are always correlatable.
func requestID(ctx context.Context) string {
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return id
		}
	}
	return uuid.New().String()
}

func logHTTPError(envelope *Envelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
		zap.String("request_id", envelope.RequestID),
	}
	if envelope.Err != nil {
		fields = append(fields, zap.Error(envelope.Err))
	}

	if statusCode >= http.StatusInternalServerError {
		observability.ServerLogger.Error(envelope.Message, fields...)
	} else {
		observability.ServerLogger.Warn(envelope.Message, fields...)
	}
}
