// errors.go - Structured error responses for the replay and carbon endpoints
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/charge-telemetry/backend/internal/replay"
)

// Error codes returned in APIError.Code
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimited       = "TOO_MANY_REQUESTS"
	CodeInternal          = "INTERNAL_ERROR"
	CodeUnknownLog        = "UNKNOWN_LOG"
	CodeLogNotFound       = "LOG_NOT_FOUND"
	CodeSignalDBNotFound  = "SIGNAL_DB_NOT_FOUND"
	CodeReplayCapacity    = "REPLAY_CAPACITY"
	CodeReplayFailed      = "REPLAY_FAILED"
	CodeReplayInterrupted = "REPLAY_INTERRUPTED"
)

// APIError is the JSON body of every non-2xx response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(status int, code, message string, cause error) *APIError {
	err := &APIError{Status: status, Code: code, Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadRequestError creates a 400 for a request that could not be decoded
func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, CodeBadRequest, message, cause)
}

// NewValidationError creates a 400 naming the offending query or body field
func NewValidationError(field string) *APIError {
	return newAPIError(http.StatusBadRequest, CodeValidation, fmt.Sprintf("validation failed for field: %s", field), nil)
}

// NewUnauthorizedError creates a 401
func NewUnauthorizedError(message string) *APIError {
	return newAPIError(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

// NewTooManyRequestsError creates a 429
func NewTooManyRequestsError(message string) *APIError {
	return newAPIError(http.StatusTooManyRequests, CodeRateLimited, message, nil)
}

// NewInternalError creates a 500 carrying the cause in Details
func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, CodeInternal, message, cause)
}

// NewUnknownLogError rejects a log name outside the catalog and lists the valid ones.
func NewUnknownLogError(name string, available []string) *APIError {
	err := newAPIError(http.StatusBadRequest, CodeUnknownLog, fmt.Sprintf("invalid log parameter: %s", name), nil)
	err.Details = "available logs: " + strings.Join(available, ", ")
	return err
}

// NewLogNotFoundError reports a catalog entry whose file is missing on disk.
func NewLogNotFoundError(name string) *APIError {
	return newAPIError(http.StatusNotFound, CodeLogNotFound, fmt.Sprintf("log file not found: %s", name), nil)
}

// NewSignalDBNotFoundError reports a missing DBC file.
func NewSignalDBNotFoundError(path string) *APIError {
	return newAPIError(http.StatusNotFound, CodeSignalDBNotFound, fmt.Sprintf("signal database not found: %s", path), nil)
}

// NewReplayCapacityError creates a 503 when every replay slot is taken.
func NewReplayCapacityError(max int) *APIError {
	return newAPIError(http.StatusServiceUnavailable, CodeReplayCapacity, fmt.Sprintf("too many concurrent replays (max %d)", max), nil)
}

// NewReplayInterruptedError creates a 503 for a replay that ended before its summary.
func NewReplayInterruptedError() *APIError {
	return newAPIError(http.StatusServiceUnavailable, CodeReplayInterrupted, "replay cancelled", nil)
}

// replayError maps an engine failure to its response. Resolution failures
// keep their own codes; everything else is a 500.
func replayError(err error, log string, available []string, signalDBPath string) *APIError {
	switch {
	case errors.Is(err, replay.ErrUnknownLog):
		return NewUnknownLogError(log, available)
	case errors.Is(err, replay.ErrSignalDBNotFound):
		return NewSignalDBNotFoundError(signalDBPath)
	case errors.Is(err, replay.ErrLogNotFound):
		return NewLogNotFoundError(log)
	default:
		return newAPIError(http.StatusInternalServerError, CodeReplayFailed, "replay failed", err)
	}
}

// ShowErrorDetails exposes unexpected error text to clients. Disabled outside debug logging.
var ShowErrorDetails = true

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if ShowErrorDetails {
			apiErr.Details = err.Error()
		}
	}

	c.JSON(apiErr.Status, apiErr)
}
