package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Input errors
	ErrInvalidInputData = errors.New("invalid input data")
	ErrEmptyDataset     = errors.New("dataset has no columns")
	ErrUnsupportedValue = errors.New("unsupported cell value")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrConfigurationLoad    = errors.New("failed to load configuration")

	// Computation errors
	ErrNonFiniteStatistic = errors.New("non-finite statistic")
	ErrInsufficientData   = errors.New("insufficient data")

	// Export errors
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// Internal errors
	ErrInternal = errors.New("internal error")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeComputation   ErrorType = "computation"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewInputError creates an error for datasets that break the input contract
func NewInputError(code, message string) *AppError {
	return WrapError(ErrInvalidInputData, ErrorTypeValidation, code, message)
}

// NewConfigurationError wraps a list of configuration problems
func NewConfigurationError(verrs *ValidationErrors) *AppError {
	appErr := WrapError(verrs, ErrorTypeConfiguration, CodeInvalidConfiguration, "invalid quality configuration")
	appErr.Details = verrs.Summary()
	return appErr
}

// NewComputationError creates an error for degenerate statistics
func NewComputationError(message string) *AppError {
	return WrapError(ErrNonFiniteStatistic, ErrorTypeComputation, CodeComputationSkipped, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeInternalError,
		Message:    message,
		Cause:      ErrInternal,
		HTTPStatus: 500,
	}
}

// IsConfigurationError reports whether err is (or wraps) a configuration error
func IsConfigurationError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeConfiguration
	}
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsInputError reports whether err is (or wraps) an input contract violation
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInputData)
}

// HTTPStatus returns the HTTP status to report for err
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return 500
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation, ErrorTypeConfiguration:
		return 400
	case ErrorTypeComputation:
		return 422
	default:
		return 500
	}
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// Error codes for different error scenarios
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeMissingField         = "MISSING_FIELD"
	CodeOutOfRange           = "OUT_OF_RANGE"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeWeightsNotNormalized = "WEIGHTS_NOT_NORMALIZED"
	CodeComputationSkipped   = "COMPUTATION_SKIPPED"
	CodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
	CodeFileOpenFailed       = "FILE_OPEN_FAILED"
	CodeDecodeFailed         = "DECODE_FAILED"
	CodeQueryFailed          = "QUERY_FAILED"
	CodeObjectFetchFailed    = "OBJECT_FETCH_FAILED"
	CodeInternalError        = "INTERNAL_ERROR"
)
