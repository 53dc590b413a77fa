package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigParse       = "CONFIG_PARSE"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
)

// UserError is a configuration problem reported to the operator with an
// actionable suggestion.
type UserError struct {
	Code       string
	Message    string
	Context    string // file path or field name
	Suggestion string
	Underlying error
}

// Error returns the formatted error message.
func (e *UserError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *UserError) Is(target error) bool {
	if t, ok := target.(*UserError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *UserError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}
	return b.String()
}

// ErrorList accumulates validation errors so they are reported together.
type ErrorList struct {
	errors []*UserError
}

// Add records a validation failure for field.
func (l *ErrorList) Add(field, message, suggestion string) {
	l.errors = append(l.errors, &UserError{
		Code:       ErrCodeValidationFailed,
		Message:    fmt.Sprintf("%s: %s", field, message),
		Context:    field,
		Suggestion: suggestion,
	})
}

// Len returns the number of errors.
func (l *ErrorList) Len() int {
	return len(l.errors)
}

// Errors returns the recorded errors.
func (l *ErrorList) Errors() []*UserError {
	return append([]*UserError(nil), l.errors...)
}

// Error implements the error interface.
func (l *ErrorList) Error() string {
	if len(l.errors) == 1 {
		return l.errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:", len(l.errors))
	for i, err := range l.errors {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, err.Error())
	}
	return b.String()
}

// Format returns a detailed rendering of every error.
func (l *ErrorList) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d error(s):\n", len(l.errors))
	for i, err := range l.errors {
		fmt.Fprintf(&b, "\n--- Error %d ---\n%s\n", i+1, err.Format())
	}
	return b.String()
}

// Is matches validation failures.
func (l *ErrorList) Is(target error) bool {
	t, ok := target.(*UserError)
	return ok && t.Code == ErrCodeValidationFailed && len(l.errors) > 0
}

// AsError returns the list as an error, or nil if empty.
func (l *ErrorList) AsError() error {
	if len(l.errors) == 0 {
		return nil
	}
	return l
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfigNotFound    = &UserError{Code: ErrCodeConfigNotFound}
	ErrConfigParse       = &UserError{Code: ErrCodeConfigParse}
	ErrUnsupportedFormat = &UserError{Code: ErrCodeUnsupportedFormat}
	ErrValidationFailed  = &UserError{Code: ErrCodeValidationFailed}
)

// NewConfigNotFoundError creates an error for a missing config file.
func NewConfigNotFoundError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeConfigNotFound,
		Message:    "configuration file not found",
		Context:    path,
		Suggestion: "Check the --config path, or omit the flag to use built-in defaults.",
	}
}

// NewConfigParseError creates an error for a file that failed to decode.
func NewConfigParseError(path, format string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeConfigParse,
		Message:    "failed to parse " + format + " configuration",
		Context:    path,
		Suggestion: "Check the syntax and that every key is one hostharden knows (unknown keys are rejected).",
		Underlying: err,
	}
}

// NewUnsupportedFormatError creates an error for an unknown file extension.
func NewUnsupportedFormatError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeUnsupportedFormat,
		Message:    "unsupported configuration format",
		Context:    path,
		Suggestion: "Use a .yaml, .yml or .toml file.",
	}
}

// GetUserError extracts a UserError from an error chain, if present.
func GetUserError(err error) *UserError {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}
