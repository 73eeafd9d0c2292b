// Package errors/handlers formats AppErrors for each interface.
//
// ERROR FLOW:
// 1. Search engine, store or validation produces an AppError
// 2. The interface handler logs it through the component logger
// 3. The handler renders it: terminal text for the CLI, JSON plus status for HTTP
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gravyprompts/gravyprompts/internal/log"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for the command line
type CLIErrorHandler struct {
	Verbose bool
	logger  *log.Logger
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
		logger:  log.ForService("cli"),
	}
}

// HandleError logs err when verbose and returns a display-ready error
func (h *CLIErrorHandler) HandleError(err error) error {
	if err == nil {
		return nil
	}
	appErr := GetAppError(err)

	if h.Verbose {
		h.logger.Errorf("[%s] %s", appErr.Severity, appErr.Error())
		if appErr.Cause != nil {
			h.logger.Errorf("caused by: %v", appErr.Cause)
		}
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for terminal display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("CRITICAL: %s", appErr.Message)
	case SeverityWarning:
		return fmt.Sprintf("WARNING: %s", appErr.Message)
	case SeverityInfo:
		return fmt.Sprintf("INFO: %s", appErr.Message)
	default:
		return fmt.Sprintf("ERROR: %s", appErr.Message)
	}
}

// HTTPErrorHandler handles errors for the HTTP API
type HTTPErrorHandler struct {
	IncludeDetails bool
	logger         *log.Logger
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
		logger:         log.ForService("http"),
	}
}

// HandleError logs the error. Causes are logged but never sent to clients.
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityInfo, SeverityWarning:
		h.logger.Debugf("[%s] %s", appErr.Severity, appErr.Error())
	default:
		h.logger.Errorf("[%s] %s", appErr.Severity, appErr.Error())
		if appErr.Cause != nil {
			h.logger.Errorf("caused by: %v", appErr.Cause)
		}
	}

	return appErr
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
}

// FormatError formats an error as the JSON response body
func (h *HTTPErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	payload := errorPayload{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Retryable: appErr.Retryable,
	}
	if h.IncludeDetails {
		payload.Details = appErr.Details
		payload.Context = appErr.Context
	}

	jsonBytes, _ := json.Marshal(errorBody{Error: payload})
	return string(jsonBytes)
}

// WriteHTTPError writes an error response
func (h *HTTPErrorHandler) WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(err)

	h.HandleError(appErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(appErr))
	w.Write([]byte(h.FormatError(appErr)))
}

// HTTPStatus maps error codes to HTTP status codes
func HTTPStatus(appErr *AppError) int {
	switch appErr.Code {
	case ErrCodeValidation, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeRetrievalFailed:
		return http.StatusBadGateway
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
