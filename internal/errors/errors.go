// Package errors provides a lightweight structured error type (BlogsmithError)
// for category-based classification and retry semantics across pipeline stages.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a Blogsmith error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// Pipeline stage errors
	CategoryGeneration ErrorCategory = "generation"
	CategoryRender     ErrorCategory = "render"
	CategoryPublish    ErrorCategory = "publish"

	// External system integration errors
	CategoryNetwork ErrorCategory = "network"
	CategoryStorage ErrorCategory = "storage"
	CategoryNotify  ErrorCategory = "notify"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// BlogsmithError is a structured error with category, retryability, and context
type BlogsmithError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BlogsmithError
type ContextFields map[string]any

// Error implements the error interface
func (e *BlogsmithError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BlogsmithError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BlogsmithError) WithContext(key string, value any) *BlogsmithError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BlogsmithError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BlogsmithError {
	return &BlogsmithError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new BlogsmithError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BlogsmithError {
	return &BlogsmithError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// Retryable creates a new retryable BlogsmithError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *BlogsmithError {
	return &BlogsmithError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable BlogsmithError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *BlogsmithError {
	return &BlogsmithError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if be, ok := err.(*BlogsmithError); ok {
		return be.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if be, ok := err.(*BlogsmithError); ok {
		return be.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a BlogsmithError
func GetCategory(err error) ErrorCategory {
	if be, ok := err.(*BlogsmithError); ok {
		return be.Category
	}
	return CategoryInternal
}
