package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onnwee/agrisync/backend/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// AUTH_ - Authentication and authorization errors
	ErrAuthMissing   ErrorCode = "AUTH_MISSING"
	ErrAuthInvalid   ErrorCode = "AUTH_INVALID"
	ErrAuthForbidden ErrorCode = "AUTH_FORBIDDEN"

	// CACHE_ - Cache administration errors
	ErrCacheInvalidPattern ErrorCode = "CACHE_INVALID_PATTERN"
	ErrCacheInvalidTTL     ErrorCode = "CACHE_INVALID_TTL"
	ErrCacheKeyNotFound    ErrorCode = "CACHE_KEY_NOT_FOUND"

	// BACKEND_ - Hosted backend errors
	ErrBackendFailed      ErrorCode = "BACKEND_FAILED"
	ErrBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrSystemTimeout     ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON   ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationInvalidFormat ErrorCode = "VALIDATION_INVALID_FORMAT"
	ErrValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue  ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrResourceConflict ErrorCode = "RESOURCE_CONFLICT"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	status    int            // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	if encErr := json.NewEncoder(w).Encode(ErrorResponse{Error: err}); encErr != nil {
		logger.Error("Failed to write error response", "code", err.Code, "error", encErr)
	}
}

// defaults holds the status and fallback message of every code.
var defaults = map[ErrorCode]struct {
	status  int
	message string
}{
	ErrAuthMissing:             {http.StatusUnauthorized, "Authentication required"},
	ErrAuthInvalid:             {http.StatusUnauthorized, "Invalid authentication credentials"},
	ErrAuthForbidden:           {http.StatusForbidden, "Access forbidden"},
	ErrCacheInvalidPattern:     {http.StatusBadRequest, "Invalid invalidation pattern"},
	ErrCacheInvalidTTL:         {http.StatusBadRequest, "Invalid ttl"},
	ErrCacheKeyNotFound:        {http.StatusNotFound, "Cache key not found"},
	ErrBackendFailed:           {http.StatusBadGateway, "Backend request failed"},
	ErrBackendUnavailable:      {http.StatusServiceUnavailable, "Backend temporarily unavailable"},
	ErrSystemInternal:          {http.StatusInternalServerError, "Internal server error"},
	ErrSystemUnavailable:       {http.StatusServiceUnavailable, "Service unavailable"},
	ErrSystemTimeout:           {http.StatusRequestTimeout, "Request timeout"},
	ErrValidationInvalidJSON:   {http.StatusBadRequest, "Invalid JSON request body"},
	ErrValidationInvalidFormat: {http.StatusBadRequest, "Invalid request format"},
	ErrValidationMissingField:  {http.StatusBadRequest, "Missing required field"},
	ErrValidationInvalidValue:  {http.StatusBadRequest, "Invalid value"},
	ErrResourceNotFound:        {http.StatusNotFound, "Resource not found"},
	ErrResourceConflict:        {http.StatusConflict, "Resource conflict"},
	ErrRateLimitGlobal:         {http.StatusTooManyRequests, "Rate limit exceeded - too many requests globally"},
	ErrRateLimitIP:             {http.StatusTooManyRequests, "Rate limit exceeded - too many requests from your IP"},
}

// Of builds an error for code with its default status. An empty message
// uses the code's default message.
func Of(code ErrorCode, message string) *Error {
	d, ok := defaults[code]
	if !ok {
		d.status = http.StatusInternalServerError
	}
	if message == "" {
		message = d.message
	}
	return New(code, message, d.status)
}

// Is matches another *Error with the same code, so errors.Is works against
// sentinel values such as Of(ErrResourceNotFound, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func AuthMissing(message string) *Error   { return Of(ErrAuthMissing, message) }
func AuthInvalid(message string) *Error   { return Of(ErrAuthInvalid, message) }
func AuthForbidden(message string) *Error { return Of(ErrAuthForbidden, message) }

// CacheInvalidPattern rejects an invalidation request that selects nothing.
func CacheInvalidPattern(message string) *Error { return Of(ErrCacheInvalidPattern, message) }
func CacheInvalidTTL(message string) *Error     { return Of(ErrCacheInvalidTTL, message) }

func CacheKeyNotFound(key string) *Error {
	return Of(ErrCacheKeyNotFound, "").WithDetails(map[string]any{"key": key})
}

func BackendFailed(message string) *Error { return Of(ErrBackendFailed, message) }

// BackendUnavailable reports that the backend is unreachable or its breaker is open.
func BackendUnavailable() *Error { return Of(ErrBackendUnavailable, "") }

func SystemInternal(message string) *Error    { return Of(ErrSystemInternal, message) }
func SystemUnavailable(message string) *Error { return Of(ErrSystemUnavailable, message) }
func SystemTimeout(message string) *Error     { return Of(ErrSystemTimeout, message) }

func ValidationInvalidJSON() *Error                 { return Of(ErrValidationInvalidJSON, "") }
func ValidationInvalidFormat(message string) *Error { return Of(ErrValidationInvalidFormat, message) }

func ValidationMissingField(field string) *Error {
	return Of(ErrValidationMissingField, "Missing required field: "+field).
		WithDetails(map[string]any{"field": field})
}

func ValidationInvalidValue(field, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return Of(ErrValidationInvalidValue, message).WithDetails(map[string]any{"field": field})
}

func ResourceNotFound(resourceType string) *Error {
	return Of(ErrResourceNotFound, resourceType+" not found").
		WithDetails(map[string]any{"resource_type": resourceType})
}

func ResourceConflict(message string) *Error { return Of(ErrResourceConflict, message) }

func RateLimitGlobal() *Error { return Of(ErrRateLimitGlobal, "") }
func RateLimitIP() *Error     { return Of(ErrRateLimitIP, "") }

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	return logger.RequestID(ctx)
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
