// Package errors defines the error taxonomy shared by the reconciliation core.
//
// Every error carries a category, a machine-readable code, an optional
// suggestion for the operator and arbitrary context. Categories map to CLI
// exit codes so that scripted callers can distinguish a bad statement file
// from a misconfigured advisor.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups errors by the subsystem that produced them.
type Category string

const (
	CategoryFile        Category = "file"
	CategoryParse       Category = "parse"
	CategoryValidation  Category = "validation"
	CategoryTransition  Category = "transition"
	CategoryAdvisor     Category = "advisor"
	CategoryPersistence Category = "persistence"
	CategoryConfig      Category = "configuration"
	CategoryInternal    Category = "internal"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// File errors
	CodeFileNotFound   Code = "file_not_found"
	CodeFilePermission Code = "file_permission"
	CodeFileUnreadable Code = "file_unreadable"

	// Parse errors
	CodeNoHeaderRow   Code = "no_header_row"
	CodeInvalidFormat Code = "invalid_format"
	CodeEncodingError Code = "encoding_error"

	// Validation errors
	CodeInvalidAmount    Code = "invalid_amount"
	CodeInvalidDate      Code = "invalid_date"
	CodeMissingField     Code = "missing_field"
	CodeUnknownReference Code = "unknown_reference"

	// Transition errors
	CodeInvalidTransition Code = "invalid_transition"
	CodeNoSuggestion      Code = "no_suggestion"

	// Advisor errors
	CodeAdvisorTransport Code = "advisor_transport"
	CodeAdvisorResponse  Code = "advisor_response"

	// Persistence errors
	CodeCreateFailed Code = "create_failed"

	// Configuration errors
	CodeInvalidConfig Code = "invalid_config"
	CodeMissingConfig Code = "missing_config"

	// Internal errors
	CodeUnexpectedError Code = "unexpected_error"
)

// ReconError is the base error type for all reconciliation core errors.
type ReconError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional structured information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *ReconError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate CLI exit code for the error.
func (e *ReconError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfig:
		return 4
	case CategoryTransition, CategoryInternal:
		return 5
	case CategoryAdvisor, CategoryPersistence:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *ReconError) WithContext(key string, value interface{}) *ReconError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for resolving the error.
func (e *ReconError) WithSuggestion(suggestion string) *ReconError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconError.
func New(category Category, code Code, message string) *ReconError {
	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconError context.
func Wrap(err error, category Category, code Code, message string) *ReconError {
	if err == nil {
		return nil
	}

	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FileError creates a file-related error.
func FileError(code Code, path string, err error) *ReconError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file could not be read: %s", path)
		suggestion = "verify the file is a readable bank export"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a statement parsing error. Parse errors reject the whole
// import; row-level anomalies are skipped by the normalizer instead.
func ParseError(code Code, detail string, err error) *ReconError {
	var message, suggestion string

	switch code {
	case CodeNoHeaderRow:
		message = fmt.Sprintf("no usable header row found: %s", detail)
		suggestion = "ensure the export contains the standard statement columns, or use the legacy fixed layout"
	case CodeEncodingError:
		message = fmt.Sprintf("statement encoding could not be decoded: %s", detail)
		suggestion = "re-export the statement as UTF-8 or Windows-1252 text"
	default:
		message = fmt.Sprintf("statement could not be parsed: %s", detail)
		suggestion = "check that the file is a tabular bank export"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.WithSuggestion(suggestion).WithContext("detail", detail)
}

// ValidationError creates a data validation error.
func ValidationError(code Code, field string, value interface{}) *ReconError {
	var message string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
	case CodeUnknownReference:
		message = fmt.Sprintf("field '%s' references an unknown ledger entity: %v", field, value)
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
	}

	return New(CategoryValidation, code, message).
		WithContext("field", field).
		WithContext("value", value)
}

// TransitionError creates an invalid state machine transition error. These are
// programming errors: callers must gate operations on AllowedActions first.
func TransitionError(operation, fromStatus string) *ReconError {
	return New(CategoryTransition, CodeInvalidTransition,
		fmt.Sprintf("operation %q is not allowed from status %q", operation, fromStatus)).
		WithSuggestion("consult AllowedActions for the movement's current status before calling transitions").
		WithContext("operation", operation).
		WithContext("from_status", fromStatus)
}

// SuggestionError creates an error for confirmations that do not match the
// stored suggestion.
func SuggestionError(operation, wanted string) *ReconError {
	return New(CategoryTransition, CodeNoSuggestion,
		fmt.Sprintf("operation %q requires a stored suggestion naming %q", operation, wanted)).
		WithContext("operation", operation).
		WithContext("wanted", wanted)
}

// AdvisorError creates an advisor transport or response error. The advisor
// converts these into zero-confidence suggestions before they reach callers.
func AdvisorError(code Code, detail string, err error) *ReconError {
	var message string

	switch code {
	case CodeAdvisorTransport:
		message = fmt.Sprintf("advisor call failed: %s", detail)
	case CodeAdvisorResponse:
		message = fmt.Sprintf("advisor response invalid: %s", detail)
	default:
		message = fmt.Sprintf("advisor error: %s", detail)
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryAdvisor, code, message)
	} else {
		result = New(CategoryAdvisor, code, message)
	}

	return result.WithContext("detail", detail)
}

// PersistenceError creates an error for failed ledger mutations. The compound
// create-and-match operation aborts entirely when one of these is returned.
func PersistenceError(operation string, err error) *ReconError {
	if err == nil {
		return nil
	}
	return Wrap(err, CategoryPersistence, CodeCreateFailed,
		fmt.Sprintf("ledger mutation failed during %s", operation)).
		WithSuggestion("verify the persistence collaborator is reachable and retry").
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error.
func ConfigurationError(code Code, setting string, value interface{}) *ReconError {
	var message string

	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
	default:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
	}

	return New(CategoryConfig, code, message).
		WithSuggestion("check the configuration documentation for valid values").
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error.
func InternalError(operation string, err error) *ReconError {
	if err == nil {
		return nil
	}
	return Wrap(err, CategoryInternal, CodeUnexpectedError,
		fmt.Sprintf("unexpected error during %s", operation)).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// IsReconError checks if an error is a ReconError.
func IsReconError(err error) bool {
	_, ok := err.(*ReconError)
	return ok
}

// AsReconError extracts a ReconError from an error chain.
func AsReconError(err error) (*ReconError, bool) {
	var reconErr *ReconError
	if errors.As(err, &reconErr) {
		return reconErr, true
	}
	return nil, false
}

// IsCategory reports whether err is a ReconError of the given category.
func IsCategory(err error, category Category) bool {
	if reconErr, ok := AsReconError(err); ok {
		return reconErr.Category == category
	}
	return false
}

// IsInvalidTransition reports whether err represents an illegal state machine
// transition.
func IsInvalidTransition(err error) bool {
	if reconErr, ok := AsReconError(err); ok {
		return reconErr.Category == CategoryTransition
	}
	return false
}

// IsPersistenceError reports whether err represents a failed ledger mutation.
func IsPersistenceError(err error) bool {
	return IsCategory(err, CategoryPersistence)
}

// IsParseError reports whether err represents a rejected statement import.
func IsParseError(err error) bool {
	return IsCategory(err, CategoryParse)
}
